package trainvisualizer

import (
	"sync"

	"github.com/travigo/livetrains/pkg/ctdf"
	"golang.org/x/exp/slices"
)

// MarkerFeatureCollection is a GeoJSON FeatureCollection of the drawn markers
type MarkerFeatureCollection struct {
	Type     string          `json:"type"`
	Features []MarkerFeature `json:"features"`
}

type MarkerFeature struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	Properties MarkerFeatProps `json:"properties"`
	Geometry   PointGeometry   `json:"geometry"`
}

type MarkerFeatProps struct {
	Style MarkerStyle `json:"style"`
	Popup string      `json:"popup"`
}

// PointGeometry coordinates are [lng, lat]
type PointGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// GeoJSONMap is an in-memory Map that exposes its markers as GeoJSON
type GeoJSONMap struct {
	mutex   sync.RWMutex
	markers map[string]*geoJSONMarker
}

func NewGeoJSONMap() *GeoJSONMap {
	return &GeoJSONMap{
		markers: map[string]*geoJSONMarker{},
	}
}

type geoJSONMarker struct {
	owner      *GeoJSONMap
	id         string
	position   ctdf.TrainPosition
	style      MarkerStyle
	popup      string
	onActivate func()
}

func (m *GeoJSONMap) AddMarker(id string, position ctdf.TrainPosition, style MarkerStyle, popup string, onActivate func()) Marker {
	marker := &geoJSONMarker{
		owner:      m,
		id:         id,
		position:   position,
		style:      style,
		popup:      popup,
		onActivate: onActivate,
	}

	m.mutex.Lock()
	m.markers[id] = marker
	m.mutex.Unlock()

	return marker
}

// Activate simulates a click on the marker for id
func (m *GeoJSONMap) Activate(id string) bool {
	m.mutex.RLock()
	marker, exists := m.markers[id]
	var onActivate func()
	if exists {
		onActivate = marker.onActivate
	}
	m.mutex.RUnlock()

	if !exists {
		return false
	}

	if onActivate != nil {
		onActivate()
	}
	return true
}

func (m *GeoJSONMap) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.markers)
}

func (m *GeoJSONMap) FeatureCollection() MarkerFeatureCollection {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	ids := make([]string, 0, len(m.markers))
	for id := range m.markers {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	collection := MarkerFeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]MarkerFeature, 0, len(ids)),
	}

	for _, id := range ids {
		marker := m.markers[id]
		collection.Features = append(collection.Features, MarkerFeature{
			Type: "Feature",
			ID:   id,
			Properties: MarkerFeatProps{
				Style: marker.style,
				Popup: marker.popup,
			},
			Geometry: PointGeometry{
				Type:        "Point",
				Coordinates: [2]float64{marker.position.Lng, marker.position.Lat},
			},
		})
	}

	return collection
}

func (marker *geoJSONMarker) SetPosition(position ctdf.TrainPosition) {
	marker.owner.mutex.Lock()
	defer marker.owner.mutex.Unlock()

	marker.position = position
}

func (marker *geoJSONMarker) SetStyle(style MarkerStyle) {
	marker.owner.mutex.Lock()
	defer marker.owner.mutex.Unlock()

	marker.style = style
}

func (marker *geoJSONMarker) SetPopup(content string) {
	marker.owner.mutex.Lock()
	defer marker.owner.mutex.Unlock()

	marker.popup = content
}

func (marker *geoJSONMarker) Remove() {
	marker.owner.mutex.Lock()
	defer marker.owner.mutex.Unlock()

	if marker.owner.markers[marker.id] == marker {
		delete(marker.owner.markers, marker.id)
	}
}

package trainvisualizer

import "github.com/travigo/livetrains/pkg/ctdf"

// Map is the rendering surface markers are drawn on
type Map interface {
	// AddMarker draws a marker. onActivate is called when the marker is clicked.
	AddMarker(id string, position ctdf.TrainPosition, style MarkerStyle, popup string, onActivate func()) Marker
}

// Marker is a handle to one drawn marker
type Marker interface {
	SetPosition(position ctdf.TrainPosition)
	SetStyle(style MarkerStyle)
	SetPopup(content string)
	Remove()
}

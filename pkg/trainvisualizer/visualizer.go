package trainvisualizer

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/travigo/livetrains/pkg/ctdf"
	"github.com/travigo/livetrains/pkg/util"
	"golang.org/x/exp/slices"
)

// markerEntry is the reconciler's state for one train. animation is nil while idle.
type markerEntry struct {
	marker    Marker
	record    ctdf.TrainRecord
	position  ctdf.TrainPosition
	animation *animation
}

type ReconcileResult struct {
	Created []string
	Updated []string
	Removed []string

	// Records without an id or a usable position
	Skipped int
}

type Option func(*Visualizer)

func WithClock(clock backoff.Clock) Option {
	return func(v *Visualizer) {
		v.clock = clock
	}
}

// WithManualFrames disables the shared frame ticker, animations then only move on Advance
func WithManualFrames() Option {
	return func(v *Visualizer) {
		v.manualFrames = true
	}
}

// Visualizer keeps the markers on a Map in step with the latest snapshot and
// animates them between positions
type Visualizer struct {
	renderer Map
	onSelect func(id string)
	clock    backoff.Clock

	manualFrames bool

	mutex     sync.Mutex
	config    Config
	markers   map[string]*markerEntry
	selected  map[string]bool
	frameStop chan struct{}
}

// New creates a visualizer drawing on renderer. onSelect receives the id of an activated marker and may be nil.
func New(renderer Map, config Config, onSelect func(id string), options ...Option) *Visualizer {
	visualizer := &Visualizer{
		renderer: renderer,
		onSelect: onSelect,
		clock:    backoff.SystemClock,
		config:   config,
		markers:  map[string]*markerEntry{},
		selected: map[string]bool{},
	}

	for _, option := range options {
		option(visualizer)
	}

	return visualizer
}

func (v *Visualizer) Configure(config Config) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.config = config
}

// Reconcile makes the marker set match trains: markers are created for new ids,
// updated in place for known ids and removed for ids no longer present.
// The one marker per id rule holds for the renderable set, which is trains after
// the selection filter and the MaxTrainsShown cap (50 by default), so a large
// snapshot does not get a marker for every id.
func (v *Visualizer) Reconcile(trains []ctdf.TrainRecord, selectedIDs []string) ReconcileResult {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.selected = util.StringSet(util.NormaliseIdentifiers(selectedIDs))

	var result ReconcileResult
	present := map[string]bool{}

	for _, train := range v.renderableLocked(trains, &result) {
		present[train.ID] = true

		if entry, exists := v.markers[train.ID]; exists {
			v.updateMarkerLocked(entry, train)
			result.Updated = append(result.Updated, train.ID)
		} else {
			v.createMarkerLocked(train)
			result.Created = append(result.Created, train.ID)
		}
	}

	for _, id := range v.sortedIDsLocked() {
		if !present[id] {
			v.removeMarkerLocked(id)
			result.Removed = append(result.Removed, id)
		}
	}

	log.Debug().
		Int("created", len(result.Created)).
		Int("updated", len(result.Updated)).
		Int("removed", len(result.Removed)).
		Int("skipped", result.Skipped).
		Msg("Reconciled train markers")

	return result
}

// renderableLocked drops records without an id or position, applies the
// selection filter and then the marker cap
func (v *Visualizer) renderableLocked(trains []ctdf.TrainRecord, result *ReconcileResult) []ctdf.TrainRecord {
	renderable := make([]ctdf.TrainRecord, 0, len(trains))

	for _, train := range trains {
		if train.ID == "" || !train.Position.IsFinite() {
			result.Skipped++
			continue
		}

		if v.config.FilterBySelection && len(v.selected) > 0 && !v.selected[train.ID] {
			continue
		}

		renderable = append(renderable, train.Clone())
	}

	if v.config.MaxTrainsShown > 0 && len(renderable) > v.config.MaxTrainsShown {
		renderable = renderable[:v.config.MaxTrainsShown]
	}

	return renderable
}

func (v *Visualizer) createMarkerLocked(train ctdf.TrainRecord) {
	id := train.ID

	marker := v.renderer.AddMarker(
		id,
		*train.Position,
		StyleFor(&train, v.selected[id]),
		PopupContent(&train),
		func() { v.activate(id) },
	)

	v.markers[id] = &markerEntry{
		marker:   marker,
		record:   train,
		position: *train.Position,
	}
}

func (v *Visualizer) updateMarkerLocked(entry *markerEntry, train ctdf.TrainRecord) {
	entry.record = train
	entry.marker.SetStyle(StyleFor(&train, v.selected[train.ID]))
	entry.marker.SetPopup(PopupContent(&train))

	v.animateLocked(train.ID, entry, entry.position, *train.Position)
}

func (v *Visualizer) removeMarkerLocked(id string) {
	entry, exists := v.markers[id]
	if !exists {
		return
	}

	entry.animation = nil
	entry.marker.Remove()
	delete(v.markers, id)
}

func (v *Visualizer) activate(id string) {
	if v.onSelect != nil {
		v.onSelect(id)
	}
}

// UpdateSelection restyles every marker for the new selection
func (v *Visualizer) UpdateSelection(selectedIDs []string) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.selected = util.StringSet(util.NormaliseIdentifiers(selectedIDs))

	for id, entry := range v.markers {
		entry.marker.SetStyle(StyleFor(&entry.record, v.selected[id]))
	}
}

// ClearAllMarkers removes every marker and cancels their animations
func (v *Visualizer) ClearAllMarkers() {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	for _, id := range v.sortedIDsLocked() {
		v.removeMarkerLocked(id)
	}
	v.stopFramesLocked()
}

// MarkerIDs lists the ids with a marker, sorted
func (v *Visualizer) MarkerIDs() []string {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	return v.sortedIDsLocked()
}

// MarkerPosition is the position currently drawn for id
func (v *Visualizer) MarkerPosition(id string) (ctdf.TrainPosition, bool) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	entry, exists := v.markers[id]
	if !exists {
		return ctdf.TrainPosition{}, false
	}
	return entry.position, true
}

func (v *Visualizer) sortedIDsLocked() []string {
	ids := make([]string, 0, len(v.markers))
	for id := range v.markers {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids
}

func (v *Visualizer) now() time.Time {
	return v.clock.Now()
}

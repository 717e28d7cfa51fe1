package api

import (
	"sync"

	"github.com/travigo/livetrains/pkg/ctdf"
	"github.com/travigo/livetrains/pkg/trainservice"
	"github.com/travigo/livetrains/pkg/trainvisualizer"
)

// LiveMap keeps an in-memory marker layer in step with the refresh cycle and
// the current selection
type LiveMap struct {
	Markers    *trainvisualizer.GeoJSONMap
	Selection  *trainvisualizer.SelectionStore
	Visualizer *trainvisualizer.Visualizer

	filterBySelection bool

	mutex       sync.Mutex
	lastRecords []ctdf.TrainRecord
}

func NewLiveMap(config trainvisualizer.Config, multiSelect bool, options ...trainvisualizer.Option) *LiveMap {
	markers := trainvisualizer.NewGeoJSONMap()
	selection := trainvisualizer.NewSelectionStore(multiSelect)

	liveMap := &LiveMap{
		Markers:           markers,
		Selection:         selection,
		Visualizer:        trainvisualizer.New(markers, config, selection.Toggle, options...),
		filterBySelection: config.FilterBySelection,
	}

	selection.OnChange(liveMap.selectionChanged)

	return liveMap
}

func (l *LiveMap) selectionChanged(selected []string) {
	if !l.filterBySelection {
		l.Visualizer.UpdateSelection(selected)
		return
	}

	// the rendered set depends on the selection so reconcile again
	l.mutex.Lock()
	records := l.lastRecords
	l.mutex.Unlock()

	l.Visualizer.Reconcile(records, selected)
}

func (l *LiveMap) Update(records []ctdf.TrainRecord) trainvisualizer.ReconcileResult {
	l.mutex.Lock()
	l.lastRecords = records
	l.mutex.Unlock()

	return l.Visualizer.Reconcile(records, l.Selection.Selected())
}

// RefreshCallback redraws on every successful refresh. Failed refreshes leave the markers in place.
func (l *LiveMap) RefreshCallback() *trainservice.RefreshCallback {
	return trainservice.NewRefreshCallback("livemap", func(records []ctdf.TrainRecord, err error) error {
		if err != nil {
			return nil
		}

		l.Update(records)
		return nil
	})
}

func (l *LiveMap) Destroy() {
	l.Visualizer.Destroy()
}

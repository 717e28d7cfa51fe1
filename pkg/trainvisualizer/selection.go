package trainvisualizer

import (
	"sync"

	"github.com/travigo/livetrains/pkg/util"
)

// SelectionStore holds the selected train numbers and tells listeners when they change
type SelectionStore struct {
	mutex       sync.Mutex
	selected    []string
	multiSelect bool
	listeners   []func(selected []string)
}

func NewSelectionStore(multiSelect bool) *SelectionStore {
	return &SelectionStore{
		multiSelect: multiSelect,
	}
}

// OnChange registers fn to be called with the new selection after every change
func (s *SelectionStore) OnChange(fn func(selected []string)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.listeners = append(s.listeners, fn)
}

func (s *SelectionStore) Selected() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return append([]string{}, s.selected...)
}

func (s *SelectionStore) IsSelected(id string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return util.ContainsString(s.selected, id)
}

func (s *SelectionStore) Clear() {
	s.mutex.Lock()
	s.selected = nil
	s.mutex.Unlock()

	s.changed()
}

// SelectValues adds ids to the selection, or flips each of them when toggle is set
func (s *SelectionStore) SelectValues(ids []string, toggle bool) {
	s.mutex.Lock()
	s.selectValuesLocked(util.NormaliseIdentifiers(ids), toggle)
	s.mutex.Unlock()

	s.changed()
}

func (s *SelectionStore) selectValuesLocked(ids []string, toggle bool) {
	for _, id := range ids {
		index := -1
		for i, selected := range s.selected {
			if selected == id {
				index = i
				break
			}
		}

		switch {
		case index < 0:
			s.selected = append(s.selected, id)
		case toggle:
			s.selected = append(s.selected[:index], s.selected[index+1:]...)
		}
	}
}

// Toggle is the marker activation handler. Without multi-select the previous
// selection is cleared first.
func (s *SelectionStore) Toggle(id string) {
	s.mutex.Lock()
	if !s.multiSelect {
		wasSelected := util.ContainsString(s.selected, id)
		s.selected = nil
		if wasSelected {
			s.selected = []string{id}
		}
	}
	s.selectValuesLocked(util.NormaliseIdentifiers([]string{id}), true)
	s.mutex.Unlock()

	s.changed()
}

func (s *SelectionStore) changed() {
	s.mutex.Lock()
	selected := append([]string{}, s.selected...)
	listeners := append([]func([]string){}, s.listeners...)
	s.mutex.Unlock()

	for _, listener := range listeners {
		listener(selected)
	}
}

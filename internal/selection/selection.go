package selection

import "sync"

// Set tracks which clips are selected and which one has focus. It is
// safe for concurrent use; every read returns a snapshot.
type Set struct {
	mu      sync.RWMutex
	ids     map[string]struct{}
	focused string
}

// New returns an empty selection.
func New() *Set {
	return &Set{ids: make(map[string]struct{})}
}

// Toggle flips membership of id and reports whether it is selected
// afterwards. Toggling also moves focus to the clip.
func (s *Set) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		if s.focused == id {
			s.focused = ""
		}
		return false
	}
	s.ids[id] = struct{}{}
	s.focused = id
	return true
}

// Add selects id without toggling. Selecting an already-selected clip
// is a no-op.
func (s *Set) Add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
}

// SelectAll replaces the selection with every id in the current
// derived list, in one step.
func (s *Set) SelectAll(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

// Clear empties the selection and drops focus.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
	s.focused = ""
}

// Focus moves keyboard focus to id without changing membership.
func (s *Set) Focus(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = id
}

// Focused returns the focused clip id, or "" when none has focus.
func (s *Set) Focused() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.focused
}

// Has reports whether id is selected.
func (s *Set) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected clips.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// IDs returns the selected ids in unspecified order.
func (s *Set) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}

// Prune drops selected and focused ids that are no longer present in
// the library, after deletions or a rescan.
func (s *Set) Prune(present func(id string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.ids {
		if !present(id) {
			delete(s.ids, id)
		}
	}
	if s.focused != "" && !present(s.focused) {
		s.focused = ""
	}
}

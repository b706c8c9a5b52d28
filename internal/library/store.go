package library

import (
	"sync"
)

// Store is the in-memory snapshot of the library: clips plus the tag,
// collection and smart folder records the filter pipeline needs.
//
// All reads operate on one consistent snapshot per call. Writes replace
// records wholesale (rescans) or patch single clips by identifier
// (optimistic mutations). Every mutation notifies subscribers so derived
// state can be recomputed.
type Store struct {
	mu           sync.RWMutex
	clips        []Clip
	byID         map[string]int
	tags         []Tag
	collections  []Collection
	smartFolders []SmartFolder

	subMu sync.Mutex
	subs  []chan struct{}
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{byID: make(map[string]int)}
}

// Subscribe returns a channel that receives a notification after every
// mutation. The channel has a buffer of one; notifications coalesce
// rather than block the writer.
func (s *Store) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()
	return ch
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// ReplaceClips swaps in a fresh clip snapshot, typically after a rescan.
func (s *Store) ReplaceClips(clips []Clip) {
	s.mu.Lock()
	s.clips = make([]Clip, len(clips))
	copy(s.clips, clips)
	s.byID = make(map[string]int, len(clips))
	for i := range s.clips {
		s.byID[s.clips[i].ID] = i
	}
	s.mu.Unlock()
	s.notify()
}

// Clips returns a copy of the current clip snapshot.
func (s *Store) Clips() []Clip {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Clip, len(s.clips))
	copy(out, s.clips)
	return out
}

// Clip returns the clip with the given id, if present.
func (s *Store) Clip(id string) (Clip, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return Clip{}, false
	}
	return s.clips[i], true
}

// PatchClip applies a partial update to a single clip and returns the
// pre-image, which a caller can use to revert the patch if a backend
// write later fails. The bool result is false when the id is unknown.
func (s *Store) PatchClip(id string, patch ClipPatch) (Clip, bool) {
	s.mu.Lock()
	i, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return Clip{}, false
	}
	prev := s.clips[i]
	c := &s.clips[i]
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.Starred != nil {
		c.Starred = *patch.Starred
	}
	if patch.Tags != nil {
		tags := make([]string, len(*patch.Tags))
		copy(tags, *patch.Tags)
		c.Tags = tags
	}
	if patch.ThumbPath != nil {
		c.ThumbPath = patch.ThumbPath
	}
	if patch.DurationSecs != nil {
		c.DurationSecs = patch.DurationSecs
	}
	if patch.Width != nil {
		c.Width = patch.Width
	}
	if patch.Height != nil {
		c.Height = patch.Height
	}
	s.mu.Unlock()
	s.notify()
	return prev, true
}

// RestoreClip puts a previously captured clip record back, reverting an
// optimistic patch. Unknown ids are ignored.
func (s *Store) RestoreClip(prev Clip) {
	s.mu.Lock()
	if i, ok := s.byID[prev.ID]; ok {
		s.clips[i] = prev
	}
	s.mu.Unlock()
	s.notify()
}

// RemoveClips drops the given ids from the snapshot.
func (s *Store) RemoveClips(ids []string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	s.mu.Lock()
	kept := s.clips[:0]
	for _, c := range s.clips {
		if !drop[c.ID] {
			kept = append(kept, c)
		}
	}
	s.clips = kept
	s.byID = make(map[string]int, len(kept))
	for i := range s.clips {
		s.byID[s.clips[i].ID] = i
	}
	s.mu.Unlock()
	s.notify()
}

// SetTags replaces the tag records.
func (s *Store) SetTags(tags []Tag) {
	s.mu.Lock()
	s.tags = append([]Tag(nil), tags...)
	s.mu.Unlock()
	s.notify()
}

// Tags returns a copy of the current tag records.
func (s *Store) Tags() []Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Tag(nil), s.tags...)
}

// TagNames returns a lookup from tag id to tag name, used by the text
// search stage of the filter pipeline.
func (s *Store) TagNames() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make(map[string]string, len(s.tags))
	for _, t := range s.tags {
		names[t.ID] = t.Name
	}
	return names
}

// SetCollections replaces the collection records.
func (s *Store) SetCollections(cols []Collection) {
	s.mu.Lock()
	s.collections = append([]Collection(nil), cols...)
	s.mu.Unlock()
	s.notify()
}

// Collections returns a copy of the current collection records.
func (s *Store) Collections() []Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Collection(nil), s.collections...)
}

// SetSmartFolders replaces the smart folder records.
func (s *Store) SetSmartFolders(folders []SmartFolder) {
	s.mu.Lock()
	s.smartFolders = append([]SmartFolder(nil), folders...)
	s.mu.Unlock()
	s.notify()
}

// SmartFolders returns a copy of the current smart folder records.
func (s *Store) SmartFolders() []SmartFolder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]SmartFolder(nil), s.smartFolders...)
}

// SmartFolder returns the smart folder with the given id, if present.
func (s *Store) SmartFolder(id string) (SmartFolder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.smartFolders {
		if f.ID == id {
			return f, true
		}
	}
	return SmartFolder{}, false
}

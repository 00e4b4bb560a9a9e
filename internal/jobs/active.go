package jobs

import "sync"

// ActiveSlot owns the single optional active-job identity used for
// admission control. It is mutated from exactly two paths: Registry.Create
// and the terminal transition inside Registry.AddEvent.
type ActiveSlot struct {
	mu sync.Mutex
	id string
}

// NewActiveSlot returns an empty slot. Tests instantiate isolated slots
// instead of sharing package state.
func NewActiveSlot() *ActiveSlot {
	return &ActiveSlot{}
}

// Acquire claims the slot for id. When the slot is already held it returns
// the holder's id and false.
func (s *ActiveSlot) Acquire(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id != "" {
		return s.id, false
	}
	s.id = id
	return id, true
}

// Release frees the slot when held by id; releasing on behalf of another
// job is a no-op.
func (s *ActiveSlot) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id == id {
		s.id = ""
	}
}

// Current returns the holder's id, if any.
func (s *ActiveSlot) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, s.id != ""
}

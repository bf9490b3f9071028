package pool

import "sync"

// slotStore holds the tokens currently free for hand-out. Put and take are
// linearizable; order is LIFO, which callers must not rely on.
type slotStore[T any] struct {
	mu    sync.Mutex
	items []T
}

func newSlotStore[T any](initial []T) *slotStore[T] {
	s := new(slotStore[T])
	s.items = make([]T, len(initial))
	copy(s.items, initial)
	return s
}

func (s *slotStore[T]) put(tok T) {
	s.mu.Lock()
	s.items = append(s.items, tok)
	s.mu.Unlock()
}

func (s *slotStore[T]) take() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	n := len(s.items)
	if n == 0 {
		return zero, false
	}
	tok := s.items[n-1]
	s.items[n-1] = zero
	s.items = s.items[:n-1]
	return tok, true
}

// takeAll empties the store and returns everything it held.
func (s *slotStore[T]) takeAll() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.items
	s.items = nil
	return out
}

func (s *slotStore[T]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

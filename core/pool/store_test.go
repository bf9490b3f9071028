package pool

import (
	"sync"
	"testing"
)

func TestStorePutTake(t *testing.T) {
	s := newSlotStore([]int{1, 2})
	if got := s.len(); got != 2 {
		t.Fatalf("expected len 2, got %d", got)
	}
	tok, ok := s.take()
	if !ok {
		t.Fatal("expected a token")
	}
	if tok != 1 && tok != 2 {
		t.Fatalf("unexpected token %d", tok)
	}
	s.put(7)
	// Most recently stored token comes back first.
	if tok, _ := s.take(); tok != 7 {
		t.Fatalf("expected 7, got %d", tok)
	}
}

func TestStoreTakeEmpty(t *testing.T) {
	s := newSlotStore[int](nil)
	if _, ok := s.take(); ok {
		t.Fatal("take on empty store should fail")
	}
}

func TestStoreTakeAll(t *testing.T) {
	s := newSlotStore([]string{"a", "b", "c"})
	all := s.takeAll()
	if len(all) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(all))
	}
	if s.len() != 0 {
		t.Fatal("store not empty after takeAll")
	}
	if got := s.takeAll(); len(got) != 0 {
		t.Fatalf("second takeAll returned %d tokens", len(got))
	}
}

func TestStoreConcurrentPutTake(t *testing.T) {
	s := newSlotStore[int](nil)
	const (
		producers = 8
		perWorker = 500
	)

	var wg sync.WaitGroup
	for w := 0; w < producers; w++ {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				s.put(w*perWorker + i)
			}
		}()
	}

	taken := make(chan int, producers*perWorker)
	var cg sync.WaitGroup
	for w := 0; w < producers; w++ {
		cg.Add(1)
		go func() {
			defer cg.Done()
			for i := 0; i < perWorker; i++ {
				for {
					if tok, ok := s.take(); ok {
						taken <- tok
						break
					}
				}
			}
		}()
	}

	wg.Wait()
	cg.Wait()
	close(taken)

	seen := make(map[int]bool, producers*perWorker)
	for tok := range taken {
		if seen[tok] {
			t.Fatalf("token %d dispensed twice", tok)
		}
		seen[tok] = true
	}
	if len(seen) != producers*perWorker {
		t.Fatalf("expected %d distinct tokens, got %d", producers*perWorker, len(seen))
	}
}

// Package registry binds caller-owned objects to the pool engine. It keeps an
// index-to-object table on the host side and only ever hands the engine opaque
// integer tokens, so the engine never needs to locate an object by identity.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coachpo/respool/core/pool"
	"github.com/coachpo/respool/errs"
)

// Lease represents one exclusive reservation handed to a caller. The caller
// must pass the lease back to Release; the lease, not the object, carries the
// engine token.
type Lease[T any] struct {
	// ID tags the reservation for logging and tracing.
	ID uuid.UUID
	// Value is the pooled object, owned exclusively by the caller until release.
	Value T

	index int
}

// Registry pools caller-supplied objects of type T.
type Registry[T any] struct {
	mu      sync.Mutex
	objects map[int]T
	next    int

	core  *pool.Pool[int]
	pin   func(T)
	unpin func(T)
}

// Option configures a registry.
type Option[T any] func(*Registry[T])

// WithPin registers a hook invoked when an object enters the registry.
func WithPin[T any](fn func(T)) Option[T] {
	return func(r *Registry[T]) { r.pin = fn }
}

// WithUnpin registers a hook invoked when an object is permanently withdrawn.
func WithUnpin[T any](fn func(T)) Option[T] {
	return func(r *Registry[T]) { r.unpin = fn }
}

// New constructs a registry seeded with the provided objects. The initial
// sequence may be empty; the registry imposes no capacity ceiling.
func New[T any](initial []T, opts ...Option[T]) *Registry[T] {
	r := new(Registry[T])
	r.objects = make(map[int]T, len(initial))
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	indices := make([]int, 0, len(initial))
	for _, obj := range initial {
		idx := r.next
		r.next++
		r.objects[idx] = obj
		indices = append(indices, idx)
		if r.pin != nil {
			r.pin(obj)
		}
	}
	r.core = pool.New(indices)
	return r
}

// Acquire reserves an object, suspending until one is free or ctx ends.
func (r *Registry[T]) Acquire(ctx context.Context) (Lease[T], error) {
	idx, err := r.core.Acquire(ctx)
	if err != nil {
		return Lease[T]{}, err
	}
	return r.lease(idx)
}

// AcquireTimeout reserves an object, waiting at most d.
func (r *Registry[T]) AcquireTimeout(ctx context.Context, d time.Duration) (Lease[T], error) {
	idx, err := r.core.AcquireTimeout(ctx, d)
	if err != nil {
		return Lease[T]{}, err
	}
	return r.lease(idx)
}

// TryAcquire reserves an object without blocking.
func (r *Registry[T]) TryAcquire() (Lease[T], error) {
	idx, err := r.core.TryAcquire()
	if err != nil {
		return Lease[T]{}, err
	}
	return r.lease(idx)
}

// Release returns a leased object to the free set.
func (r *Registry[T]) Release(l Lease[T]) error {
	r.mu.Lock()
	_, ok := r.objects[l.index]
	r.mu.Unlock()
	if !ok {
		return errs.New("core/registry", errs.CodeInvalid,
			errs.WithMessage("lease does not belong to this registry"))
	}
	r.core.Release(l.index)
	return nil
}

// Add grows the registry with a new object at runtime.
func (r *Registry[T]) Add(obj T) {
	r.mu.Lock()
	idx := r.next
	r.next++
	r.objects[idx] = obj
	r.mu.Unlock()
	if r.pin != nil {
		r.pin(obj)
	}
	r.core.Add(idx)
}

// RemoveOne permanently withdraws one currently-free object, unpinning it.
// Best-effort: a fully reserved registry reports pool.ErrExhausted.
func (r *Registry[T]) RemoveOne() (T, error) {
	var zero T
	idx, err := r.core.RemoveOne()
	if err != nil {
		return zero, err
	}
	r.mu.Lock()
	obj, ok := r.objects[idx]
	if ok {
		delete(r.objects, idx)
	}
	r.mu.Unlock()
	if !ok {
		return zero, errs.New("core/registry", errs.CodeInternal,
			errs.WithMessage("pool returned index with no registered object"))
	}
	if r.unpin != nil {
		r.unpin(obj)
	}
	return obj, nil
}

// Close drains the registry: waiters fail with pool.ErrClosed and every free
// object is unpinned and returned for disposal. Objects still leased stay with
// their holders; releasing them afterwards is tolerated but they are not
// recycled.
func (r *Registry[T]) Close() []T {
	indices := r.core.Drain()
	out := make([]T, 0, len(indices))
	r.mu.Lock()
	for _, idx := range indices {
		obj, ok := r.objects[idx]
		if !ok {
			continue
		}
		delete(r.objects, idx)
		out = append(out, obj)
	}
	r.mu.Unlock()
	for _, obj := range out {
		if r.unpin != nil {
			r.unpin(obj)
		}
	}
	return out
}

// Available reports currently acquirable objects.
func (r *Registry[T]) Available() int { return r.core.Available() }

// Size reports total managed objects, free plus leased.
func (r *Registry[T]) Size() int { return r.core.Size() }

// Pending reports callers suspended in Acquire.
func (r *Registry[T]) Pending() int { return r.core.Pending() }

// Snapshot samples the underlying pool counters.
func (r *Registry[T]) Snapshot() pool.Stats { return r.core.Snapshot() }

func (r *Registry[T]) lease(idx int) (Lease[T], error) {
	r.mu.Lock()
	obj, ok := r.objects[idx]
	r.mu.Unlock()
	if !ok {
		return Lease[T]{}, errs.New("core/registry", errs.CodeInternal,
			errs.WithMessage("pool returned index with no registered object"))
	}
	return Lease[T]{ID: uuid.New(), Value: obj, index: idx}, nil
}

package audit

import (
	"context"
	"errors"
	"sync"
)

// MemoryRepo keeps the most recent events in process so operators can review recent admin
// actions without a log search. Older events are dropped once capacity is reached.
type MemoryRepo struct {
	mu       sync.Mutex
	capacity int
	events   []Event
}

const defaultMemoryCapacity = 500

func NewMemoryRepo() *MemoryRepo { return NewBoundedMemoryRepo(defaultMemoryCapacity) }

func NewBoundedMemoryRepo(capacity int) *MemoryRepo {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryRepo{capacity: capacity}
}

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == r.capacity {
		copy(r.events, r.events[1:])
		r.events = r.events[:len(r.events)-1]
	}
	r.events = append(r.events, e)
	return nil
}

// Events returns every retained event, oldest first.
func (r *MemoryRepo) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Recent returns up to limit events, newest first. An empty typ matches every type.
func (r *MemoryRepo) Recent(limit int, typ EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0, min(limit, len(r.events)))
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		if typ == "" || r.events[i].Type == typ {
			out = append(out, r.events[i])
		}
	}
	return out
}

// Tee appends every event to each repo in order. All repos are attempted; errors are joined.
func Tee(repos ...Repository) Repository { return teeRepo(repos) }

type teeRepo []Repository

func (t teeRepo) Append(ctx context.Context, e Event) error {
	var errs []error
	for _, r := range t {
		if err := r.Append(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

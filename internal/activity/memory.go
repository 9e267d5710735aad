package activity

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps activity for the lifetime of the process. It is used
// when no database is configured.
type MemoryStore struct {
	mu     sync.Mutex
	max    int
	events []Event
}

// NewMemoryStore keeps at most max entries; max <= 0 keeps 100
func NewMemoryStore(max int) *MemoryStore {
	if max <= 0 {
		max = 100
	}
	return &MemoryStore{max: max}
}

func (m *MemoryStore) Record(ctx context.Context, ev Event) (Event, error) {
	ev = prepare(ev)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	if len(m.events) > m.max {
		m.events = m.events[len(m.events)-m.max:]
	}
	return ev, nil
}

func (m *MemoryStore) Recent(ctx context.Context, limit int) ([]Event, error) {
	m.mu.Lock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	m.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

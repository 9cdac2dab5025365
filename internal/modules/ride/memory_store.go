// README: In-process Repository used by tests and single-node development runs.
package ride

import (
	"context"
	"sort"
	"sync"
	"time"

	"londa/internal/types"
)

// MemoryStore serialises every operation behind one mutex, which gives
// Update the same atomicity as a store transaction.
type MemoryStore struct {
	mu    sync.Mutex
	rides map[types.ID]Ride
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rides: map[types.ID]Ride{}}
}

func (m *MemoryStore) Create(_ context.Context, r *Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[r.ID]; ok {
		return ErrBadRequest
	}
	m.rides[r.ID] = *r
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id types.ID) (*Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) Update(_ context.Context, id types.ID, fn func(r *Ride) error) (*Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := fn(&r); err != nil {
		return nil, err
	}
	m.rides[id] = r
	return &r, nil
}

func (m *MemoryStore) ListByRider(_ context.Context, riderID types.ID, q PageQuery) (Page, error) {
	return m.page(func(r Ride) bool { return r.RiderID == riderID }, q), nil
}

func (m *MemoryStore) ListByDriver(_ context.Context, driverID types.ID, q PageQuery) (Page, error) {
	return m.page(func(r Ride) bool { return r.AssignedTo(driverID) }, q), nil
}

func (m *MemoryStore) ListPending(_ context.Context, limit int) ([]Ride, error) {
	out := m.filter(func(r Ride) bool { return r.Status == StatusPending })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) ListExpired(_ context.Context, now time.Time, limit int) ([]Ride, error) {
	out := m.filter(func(r Ride) bool { return r.expiryDue(now) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) page(match func(Ride) bool, q PageQuery) Page {
	q = q.Normalize()
	all := m.filter(match)
	p := Page{Total: len(all), Page: q.Page, Limit: q.Limit}
	if start := q.Offset(); start < len(all) {
		end := min(start+q.Limit, len(all))
		p.Rides = all[start:end]
		p.HasMore = end < len(all)
	}
	return p
}

// filter returns matching rides, newest first.
func (m *MemoryStore) filter(match func(Ride) bool) []Ride {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Ride
	for _, r := range m.rides {
		if match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

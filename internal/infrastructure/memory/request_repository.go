package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/facility-hub/facility-hub/internal/domain/request"
	"github.com/facility-hub/facility-hub/internal/domain/sequence"
)

// RequestRepository implements request.Repository.
type RequestRepository struct {
	s *Store
}

func (s *Store) Requests() *RequestRepository {
	return &RequestRepository{s: s}
}

func (r *RequestRepository) GetByID(ctx context.Context, requestID uuid.UUID) (*request.Request, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	req, ok := r.s.requests[requestID]
	if !ok {
		return nil, nil
	}
	return req.Clone(), nil
}

func matches(req *request.Request, f request.Filter) bool {
	if f.Status != nil && req.Status != *f.Status {
		return false
	}
	if f.ServicerID != nil && (req.ServicerID == nil || *req.ServicerID != *f.ServicerID) {
		return false
	}
	if f.CreatedBy != nil && req.CreatedBy != *f.CreatedBy {
		return false
	}
	if f.BuildingID != nil && req.BuildingID != *f.BuildingID {
		return false
	}
	if f.Inactive != nil && req.Inactive != *f.Inactive {
		return false
	}
	if f.OverdueAt != nil && (req.EstimatedEndDate == nil || !req.EstimatedEndDate.Before(*f.OverdueAt)) {
		return false
	}
	return true
}

func (r *RequestRepository) List(ctx context.Context, filter request.Filter, limit, offset int) ([]*request.Request, error) {
	r.s.mu.RLock()
	out := make([]*request.Request, 0)
	for _, req := range r.s.requests {
		if matches(req, filter) {
			out = append(out, req.Clone())
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Number > out[j].Number
	})
	return page(out, limit, offset), nil
}

func (r *RequestRepository) ListHistory(ctx context.Context, requestID uuid.UUID) ([]*request.History, error) {
	r.s.mu.RLock()
	ids := r.s.byRequest[requestID]
	out := make([]*request.History, 0, len(ids))
	for _, id := range ids {
		h := *r.s.histories[id]
		out = append(out, &h)
	}
	r.s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (r *RequestRepository) GetHistory(ctx context.Context, historyID uuid.UUID) (*request.History, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	h, ok := r.s.histories[historyID]
	if !ok {
		return nil, nil
	}
	cp := *h
	return &cp, nil
}

// CounterRepository implements sequence.Repository.
type CounterRepository struct {
	s *Store
}

func (s *Store) Counters() *CounterRepository {
	return &CounterRepository{s: s}
}

func (r *CounterRepository) Create(ctx context.Context, c *sequence.Counter) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.counters[c.Domain]; ok {
		return sequence.ErrCounterExists
	}
	cp := *c
	r.s.counters[c.Domain] = &cp
	return nil
}

func (r *CounterRepository) Get(ctx context.Context, domain sequence.Domain) (*sequence.Counter, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.counters[domain]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *CounterRepository) List(ctx context.Context) ([]*sequence.Counter, error) {
	r.s.mu.RLock()
	out := make([]*sequence.Counter, 0, len(r.s.counters))
	for _, c := range r.s.counters {
		cp := *c
		out = append(out, &cp)
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

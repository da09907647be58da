package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/facility-hub/facility-hub/internal/domain/errs"
	"github.com/facility-hub/facility-hub/internal/domain/reference"
	"github.com/facility-hub/facility-hub/internal/domain/request"
	"github.com/facility-hub/facility-hub/internal/domain/sequence"
	"github.com/facility-hub/facility-hub/internal/domain/session"
	"github.com/facility-hub/facility-hub/internal/domain/store"
	"github.com/facility-hub/facility-hub/internal/domain/user"
)

// Store is an in-process implementation of every repository and of
// store.Transactor. Transactions are optimistic: reads are unlocked, writes
// are buffered and validated against stored versions at commit.
type Store struct {
	mu sync.RWMutex

	requests  map[uuid.UUID]*request.Request
	histories map[uuid.UUID]*request.History
	byRequest map[uuid.UUID][]uuid.UUID
	counters  map[sequence.Domain]*sequence.Counter

	users    map[uuid.UUID]*user.User
	sessions map[uuid.UUID]*session.Session

	buildings     map[uuid.UUID]*reference.Building
	rooms         map[uuid.UUID]*reference.Room
	categories    map[uuid.UUID]*reference.Category
	subcategories map[uuid.UUID]*reference.Subcategory

	// beforeCommit runs after fn returns and before validation. Tests use it
	// to interleave a competing transaction or inject a storage fault.
	beforeCommit func() error
}

func New() *Store {
	return &Store{
		requests:      make(map[uuid.UUID]*request.Request),
		histories:     make(map[uuid.UUID]*request.History),
		byRequest:     make(map[uuid.UUID][]uuid.UUID),
		counters:      make(map[sequence.Domain]*sequence.Counter),
		users:         make(map[uuid.UUID]*user.User),
		sessions:      make(map[uuid.UUID]*session.Session),
		buildings:     make(map[uuid.UUID]*reference.Building),
		rooms:         make(map[uuid.UUID]*reference.Room),
		categories:    make(map[uuid.UUID]*reference.Category),
		subcategories: make(map[uuid.UUID]*reference.Subcategory),
	}
}

// SetBeforeCommit installs a hook invoked before every commit. A non-nil
// error from the hook aborts the transaction with that error.
func (s *Store) SetBeforeCommit(hook func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beforeCommit = hook
}

type counterSwap struct {
	expected int64
	next     int64
}

type memTx struct {
	s *Store

	inserted map[uuid.UUID]*request.Request
	updated  map[uuid.UUID]*request.Request
	// readVersion records the stored version each updated request was read at.
	readVersion map[uuid.UUID]int64
	histories   []*request.History
	swaps       map[sequence.Domain]counterSwap
}

// RunInTx implements store.Transactor.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	tx := &memTx{
		s:           s,
		inserted:    make(map[uuid.UUID]*request.Request),
		updated:     make(map[uuid.UUID]*request.Request),
		readVersion: make(map[uuid.UUID]int64),
		swaps:       make(map[sequence.Domain]counterSwap),
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.mu.RLock()
	hook := s.beforeCommit
	s.mu.RUnlock()
	if hook != nil {
		if err := hook(); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return tx.commit()
}

func (tx *memTx) commit() error {
	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range tx.inserted {
		if _, ok := s.requests[id]; ok {
			return errs.Conflict(fmt.Errorf("request %s already exists", id))
		}
	}
	for id := range tx.updated {
		cur, ok := s.requests[id]
		if !ok {
			return errs.Conflict(fmt.Errorf("request %s vanished", id))
		}
		if cur.Version != tx.readVersion[id] {
			return errs.Conflict(fmt.Errorf("request %s version %d, read %d", id, cur.Version, tx.readVersion[id]))
		}
	}
	for d, sw := range tx.swaps {
		c, ok := s.counters[d]
		if !ok || c.LastNumber != sw.expected {
			return errs.Conflict(fmt.Errorf("counter %s moved", d))
		}
	}
	for _, h := range tx.histories {
		if _, ok := s.histories[h.HistoryID]; ok {
			return errs.Conflict(fmt.Errorf("history %s already exists", h.HistoryID))
		}
	}

	for id, r := range tx.inserted {
		s.requests[id] = r.Clone()
	}
	for id, r := range tx.updated {
		s.requests[id] = r.Clone()
	}
	for d, sw := range tx.swaps {
		c := *s.counters[d]
		c.LastNumber = sw.next
		c.UpdatedAt = time.Now().UTC()
		s.counters[d] = &c
	}
	for _, h := range tx.histories {
		cp := *h
		s.histories[h.HistoryID] = &cp
		s.byRequest[h.RequestID] = append(s.byRequest[h.RequestID], h.HistoryID)
	}
	return nil
}

func (tx *memTx) GetRequest(ctx context.Context, requestID uuid.UUID) (*request.Request, error) {
	if r, ok := tx.updated[requestID]; ok {
		return r.Clone(), nil
	}
	if r, ok := tx.inserted[requestID]; ok {
		return r.Clone(), nil
	}
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	r, ok := tx.s.requests[requestID]
	if !ok {
		return nil, errs.NotFound("request", requestID)
	}
	return r.Clone(), nil
}

func (tx *memTx) InsertRequest(ctx context.Context, r *request.Request) error {
	if _, ok := tx.inserted[r.RequestID]; ok {
		return errs.Conflict(fmt.Errorf("request %s already inserted", r.RequestID))
	}
	r.Version = 1
	tx.inserted[r.RequestID] = r.Clone()
	return nil
}

func (tx *memTx) UpdateRequest(ctx context.Context, r *request.Request) error {
	if pending, ok := tx.inserted[r.RequestID]; ok {
		if pending.Version != r.Version {
			return errs.Conflict(fmt.Errorf("request %s version mismatch", r.RequestID))
		}
		r.Version++
		tx.inserted[r.RequestID] = r.Clone()
		return nil
	}
	if pending, ok := tx.updated[r.RequestID]; ok {
		if pending.Version != r.Version {
			return errs.Conflict(fmt.Errorf("request %s version mismatch", r.RequestID))
		}
		r.Version++
		tx.updated[r.RequestID] = r.Clone()
		return nil
	}

	tx.s.mu.RLock()
	cur, ok := tx.s.requests[r.RequestID]
	var stored int64
	if ok {
		stored = cur.Version
	}
	tx.s.mu.RUnlock()
	if !ok {
		return errs.NotFound("request", r.RequestID)
	}
	if stored != r.Version {
		return errs.Conflict(fmt.Errorf("request %s version %d, expected %d", r.RequestID, stored, r.Version))
	}
	tx.readVersion[r.RequestID] = r.Version
	r.Version++
	tx.updated[r.RequestID] = r.Clone()
	return nil
}

func (tx *memTx) InsertHistory(ctx context.Context, h *request.History) error {
	cp := *h
	tx.histories = append(tx.histories, &cp)
	return nil
}

func (tx *memTx) GetCounter(ctx context.Context, domain sequence.Domain) (*sequence.Counter, error) {
	tx.s.mu.RLock()
	c, ok := tx.s.counters[domain]
	var cp sequence.Counter
	if ok {
		cp = *c
	}
	tx.s.mu.RUnlock()
	if !ok {
		return nil, errs.NotFound("counter", domain)
	}
	if sw, ok := tx.swaps[domain]; ok {
		cp.LastNumber = sw.next
	}
	return &cp, nil
}

func (tx *memTx) CompareAndSwapCounter(ctx context.Context, domain sequence.Domain, expected, next int64) error {
	if sw, ok := tx.swaps[domain]; ok {
		if sw.next != expected {
			return errs.Conflict(fmt.Errorf("counter %s moved within transaction", domain))
		}
		tx.swaps[domain] = counterSwap{expected: sw.expected, next: next}
		return nil
	}
	tx.s.mu.RLock()
	c, ok := tx.s.counters[domain]
	var last int64
	if ok {
		last = c.LastNumber
	}
	tx.s.mu.RUnlock()
	if !ok {
		return errs.NotFound("counter", domain)
	}
	if last != expected {
		return errs.Conflict(fmt.Errorf("counter %s at %d, expected %d", domain, last, expected))
	}
	tx.swaps[domain] = counterSwap{expected: expected, next: next}
	return nil
}

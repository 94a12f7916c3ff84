package in_memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/crosspair/exchange/internal/domain"
	"github.com/crosspair/exchange/internal/port"
)

var _ port.Repository = (*MemoryRepo)(nil)

// MemoryRepo is the in-process store used in tests and dev mode. A
// transaction holds the store lock from BeginTx until Commit/Rollback and
// keeps an undo log, so rollback semantics match the Postgres adapter.
type MemoryRepo struct {
	mu     sync.Mutex
	orders map[int64]*domain.Order
	logs   []*domain.LogEntry
	nextID int64
	logID  int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{orders: make(map[int64]*domain.Order)}
}

func (r *MemoryRepo) BeginTx(ctx context.Context) (port.Tx, error) {
	r.mu.Lock()
	return &memoryTx{repo: r}, nil
}

func (r *MemoryRepo) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listLocked(), nil
}

func (r *MemoryRepo) listLocked() []*domain.Order {
	res := make([]*domain.Order, 0, len(r.orders))
	for _, o := range r.orders {
		cp := *o
		res = append(res, &cp)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (r *MemoryRepo) AppendLog(ctx context.Context, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logID++
	r.logs = append(r.logs, &domain.LogEntry{
		ID:      r.logID,
		Logtime: time.Now(),
		Message: message,
	})
	return nil
}

func (r *MemoryRepo) ListLogs(ctx context.Context) ([]*domain.LogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]*domain.LogEntry, len(r.logs))
	copy(res, r.logs)
	return res, nil
}

func (r *MemoryRepo) Close() {}

type memoryTx struct {
	repo *MemoryRepo
	done bool

	created []int64
	filled  []*domain.Order // orders whose fill must be undone on rollback
}

var _ port.Tx = (*memoryTx)(nil)

func (t *memoryTx) CreateOrder(ctx context.Context, o *domain.Order) error {
	t.repo.nextID++
	o.ID = t.repo.nextID
	o.CreatedAt = time.Now()
	o.Filled = nil
	o.CounterpartyID = nil
	cp := *o
	t.repo.orders[o.ID] = &cp
	t.created = append(t.created, o.ID)
	return nil
}

func (t *memoryTx) FindCounterparty(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	var best *domain.Order
	for _, e := range t.repo.orders {
		if !e.Open() || e.ID == o.ID || e.Degenerate() {
			continue
		}
		if !domain.Mirrors(e, o) || !domain.SatisfiesRate(e, o) {
			continue
		}
		if best == nil || e.ID < best.ID {
			best = e
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (t *memoryTx) FillPair(ctx context.Context, a, b *domain.Order, at time.Time) error {
	sa, okA := t.repo.orders[a.ID]
	sb, okB := t.repo.orders[b.ID]
	if !okA || !okB || !sa.Open() || !sb.Open() {
		return port.ErrFillConflict
	}
	fill := func(o *domain.Order, counterparty int64) {
		ts := at
		id := counterparty
		o.Filled = &ts
		o.CounterpartyID = &id
	}
	fill(sa, sb.ID)
	fill(sb, sa.ID)
	t.filled = append(t.filled, sa, sb)
	fill(a, b.ID)
	fill(b, a.ID)
	return nil
}

func (t *memoryTx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.repo.mu.Unlock()
	return nil
}

func (t *memoryTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	for _, o := range t.filled {
		o.Filled = nil
		o.CounterpartyID = nil
	}
	for _, id := range t.created {
		delete(t.repo.orders, id)
	}
	t.repo.mu.Unlock()
	return nil
}

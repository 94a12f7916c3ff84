package port

import (
	"context"
	"errors"
	"time"

	"github.com/crosspair/exchange/internal/domain"
)

// ErrFillConflict is returned by Tx.FillPair when either side of the match
// was filled by a concurrent transaction; the caller re-runs its search.
var ErrFillConflict = errors.New("order already filled")

type Repository interface {
	BeginTx(ctx context.Context) (Tx, error)
	// ListOrders returns every order ever persisted, in id order.
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	// AppendLog records a rejected raw request. Deliberately outside any
	// request transaction so a rejection's rollback cannot erase its own
	// audit entry.
	AppendLog(ctx context.Context, message string) error
	ListLogs(ctx context.Context) ([]*domain.LogEntry, error)
	Close()
}

type Tx interface {
	// CreateOrder persists o as open and assigns its id and creation time.
	CreateOrder(ctx context.Context, o *domain.Order) error
	// FindCounterparty returns the open order with the lowest id whose
	// currency pair mirrors o's and whose implied rate satisfies o's,
	// excluding 1:1 orders. Returns (nil, nil) when no order qualifies.
	FindCounterparty(ctx context.Context, o *domain.Order) (*domain.Order, error)
	// FillPair transitions both orders Open -> Filled at the same instant
	// with mutual counterparty links. Both rows update or neither does;
	// returns ErrFillConflict if either is no longer open.
	FillPair(ctx context.Context, a, b *domain.Order, at time.Time) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

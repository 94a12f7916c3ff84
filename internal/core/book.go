package core

import (
	"context"

	"github.com/crosspair/exchange/internal/domain"
)

// Book returns the full order book projection, cache-aside: a cached
// snapshot is served as-is, a miss loads from the store and repopulates the
// cache. Fills invalidate the cache, so two reads with no intervening trade
// return identical snapshots.
func (e *Engine) Book(ctx context.Context) (*domain.BookSnapshot, error) {
	if e.cache != nil {
		if b, err := e.cache.GetBook(ctx); err == nil && b != nil {
			return b, nil
		}
	}

	orders, err := e.repo.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	b := &domain.BookSnapshot{
		Orders:    make([]domain.Order, len(orders)),
		Timestamp: e.now(),
	}
	for i, o := range orders {
		b.Orders[i] = *o
	}

	if e.cache != nil {
		_ = e.cache.SetBook(ctx, b.DeepCopy())
	}
	return b, nil
}

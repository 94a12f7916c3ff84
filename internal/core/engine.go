package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/crosspair/exchange/internal/domain"
	"github.com/crosspair/exchange/internal/port"
)

// Engine matches new orders against the resting book. Each accepted order is
// persisted open, matched against at most one counterparty per step, and any
// unconsumed excess re-enters matching as a remainder order.
type Engine struct {
	repo  port.Repository
	cache port.Cache
	log   *zap.Logger

	// mu serializes the find-counterparty-and-fill sequence so two
	// concurrent submissions cannot consume the same resting order.
	mu sync.Mutex

	now func() time.Time
}

func NewEngine(repo port.Repository, cache port.Cache, log *zap.Logger) *Engine {
	return &Engine{
		repo:  repo,
		cache: cache,
		log:   log,
		now:   time.Now,
	}
}

// Submit runs the full match-and-cascade for a new order inside a single
// transaction; either the whole cascade commits or none of it does. The book
// cache is dropped after any accepted order.
func (e *Engine) Submit(ctx context.Context, o *domain.Order) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := withTx(ctx, e.repo, func(tx port.Tx) error {
		return e.process(ctx, tx, o)
	})
	if err != nil {
		return err
	}
	if e.cache != nil {
		_ = e.cache.Invalidate(ctx)
	}
	return nil
}

// process drains a work queue seeded with o. A queue rather than recursion:
// the cascade depth is bounded by the resting book, but the stack need not
// pay for it.
func (e *Engine) process(ctx context.Context, tx port.Tx, o *domain.Order) error {
	queue := []*domain.Order{o}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if err := tx.CreateOrder(ctx, cur); err != nil {
			return err
		}
		if cur.Degenerate() {
			continue // 1:1 orders rest open, never match
		}

		for {
			match, err := tx.FindCounterparty(ctx, cur)
			if err != nil {
				return err
			}
			if match == nil {
				break // rests open
			}
			at := e.now()
			if err := tx.FillPair(ctx, cur, match, at); err != nil {
				if errors.Is(err, port.ErrFillConflict) {
					continue // candidate got consumed, search again
				}
				return err
			}
			e.log.Debug("orders filled",
				zap.Int64("order_id", cur.ID),
				zap.Int64("counterparty_id", match.ID))

			if rem := remainder(cur, match); rem != nil {
				e.log.Debug("remainder order created",
					zap.Int64("creator_id", *rem.CreatorID),
					zap.String("buy_amount", rem.BuyAmount.String()),
					zap.String("sell_amount", rem.SellAmount.String()))
				queue = append(queue, rem)
			}
			break
		}
	}
	return nil
}

// remainder synthesizes the order representing whichever side's unconsumed
// quantity after o filled against e, or nil when the fill was exact.
func remainder(o, e *domain.Order) *domain.Order {
	switch o.BuyAmount.Cmp(e.SellAmount) {
	case 1: // o only partially satisfied
		remaining := o.BuyAmount.Sub(e.SellAmount)
		rate := o.BuyAmount.Div(o.SellAmount)
		return childOrder(o, remaining, remaining.Div(rate))
	case -1: // e only partially consumed
		remaining := e.SellAmount.Sub(o.BuyAmount)
		rate := e.SellAmount.Div(e.BuyAmount)
		return childOrder(e, remaining.Div(rate), remaining)
	default:
		return nil
	}
}

func childOrder(parent *domain.Order, buy, sell decimal.Decimal) *domain.Order {
	creator := parent.ID
	return &domain.Order{
		CreatorID:    &creator,
		SenderPK:     parent.SenderPK,
		ReceiverPK:   parent.ReceiverPK,
		BuyCurrency:  parent.BuyCurrency,
		SellCurrency: parent.SellCurrency,
		BuyAmount:    buy,
		SellAmount:   sell,
	}
}

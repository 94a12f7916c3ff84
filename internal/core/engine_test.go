package core

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crosspair/exchange/internal/adapter/in_memory"
	"github.com/crosspair/exchange/internal/domain"
	"github.com/crosspair/exchange/internal/port"
)

func newTestEngine() (*Engine, *in_memory.MemoryRepo) {
	repo := in_memory.NewMemoryRepo()
	return NewEngine(repo, in_memory.NewCache(), zap.NewNop()), repo
}

func order(sender, buyCur, sellCur string, buy, sell int64) *domain.Order {
	return &domain.Order{
		SenderPK:     sender,
		ReceiverPK:   "receiver",
		BuyCurrency:  buyCur,
		SellCurrency: sellCur,
		BuyAmount:    decimal.NewFromInt(buy),
		SellAmount:   decimal.NewFromInt(sell),
	}
}

func listOrders(t *testing.T, repo *in_memory.MemoryRepo) []*domain.Order {
	t.Helper()
	orders, err := repo.ListOrders(context.Background())
	require.NoError(t, err)
	return orders
}

func TestSubmitNoCounterpartyRestsOpen(t *testing.T) {
	eng, repo := newTestEngine()

	require.NoError(t, eng.Submit(context.Background(), order("alice", "ETH", "ALGO", 10, 5)))

	orders := listOrders(t, repo)
	require.Len(t, orders, 1)
	require.True(t, orders[0].Open())
	require.Nil(t, orders[0].CounterpartyID)
	require.Nil(t, orders[0].CreatorID)
	require.NotZero(t, orders[0].ID)
}

func TestExactMatch(t *testing.T) {
	eng, repo := newTestEngine()
	ctx := context.Background()

	// A wants 10 ETH for 5 ALGO, B wants 5 ALGO for 10 ETH: exact cross.
	require.NoError(t, eng.Submit(ctx, order("alice", "ETH", "ALGO", 10, 5)))
	require.NoError(t, eng.Submit(ctx, order("bob", "ALGO", "ETH", 5, 10)))

	orders := listOrders(t, repo)
	require.Len(t, orders, 2, "exact fill must not spawn a remainder")

	a, b := orders[0], orders[1]
	require.False(t, a.Open())
	require.False(t, b.Open())
	require.Equal(t, b.ID, *a.CounterpartyID)
	require.Equal(t, a.ID, *b.CounterpartyID)
	require.Equal(t, *a.Filled, *b.Filled, "both sides close at the same instant")
}

func TestPartialFillCreatesRemainder(t *testing.T) {
	eng, repo := newTestEngine()
	ctx := context.Background()

	// Resting E: buy 5 ALGO, sell 10 ETH. New N: buy 20 ETH, sell 10 ALGO.
	require.NoError(t, eng.Submit(ctx, order("erin", "ALGO", "ETH", 5, 10)))
	require.NoError(t, eng.Submit(ctx, order("nina", "ETH", "ALGO", 20, 10)))

	orders := listOrders(t, repo)
	require.Len(t, orders, 3)

	e, n, rem := orders[0], orders[1], orders[2]
	require.False(t, e.Open())
	require.False(t, n.Open())
	require.Equal(t, n.ID, *e.CounterpartyID)
	require.Equal(t, e.ID, *n.CounterpartyID)

	require.True(t, rem.Open())
	require.Equal(t, n.ID, *rem.CreatorID)
	require.Equal(t, "nina", rem.SenderPK)
	require.Equal(t, "ETH", rem.BuyCurrency)
	require.Equal(t, "ALGO", rem.SellCurrency)
	require.True(t, rem.BuyAmount.Equal(decimal.NewFromInt(10)), "buy %s", rem.BuyAmount)
	require.True(t, rem.SellAmount.Equal(decimal.NewFromInt(5)), "sell %s", rem.SellAmount)
}

func TestPartialFillRestingSideRemainder(t *testing.T) {
	eng, repo := newTestEngine()
	ctx := context.Background()

	// Resting E sells more ETH than the new order N asks for; the excess
	// re-enters the book as E's child.
	require.NoError(t, eng.Submit(ctx, order("erin", "ALGO", "ETH", 10, 20)))
	require.NoError(t, eng.Submit(ctx, order("nina", "ETH", "ALGO", 8, 4)))

	orders := listOrders(t, repo)
	require.Len(t, orders, 3)

	e, rem := orders[0], orders[2]
	require.False(t, e.Open())
	require.True(t, rem.Open())
	require.Equal(t, e.ID, *rem.CreatorID)
	require.Equal(t, "erin", rem.SenderPK)
	require.Equal(t, "ALGO", rem.BuyCurrency)
	require.Equal(t, "ETH", rem.SellCurrency)
	require.True(t, rem.SellAmount.Equal(decimal.NewFromInt(12)), "sell %s", rem.SellAmount)
	require.True(t, rem.BuyAmount.Equal(decimal.NewFromInt(6)), "buy %s", rem.BuyAmount)
}

func TestCascadingFills(t *testing.T) {
	eng, repo := newTestEngine()
	ctx := context.Background()

	require.NoError(t, eng.Submit(ctx, order("e1", "ALGO", "ETH", 5, 10)))
	require.NoError(t, eng.Submit(ctx, order("e2", "ALGO", "ETH", 2, 4)))
	require.NoError(t, eng.Submit(ctx, order("nina", "ETH", "ALGO", 20, 10)))

	// nina fills e1, remainder (10 ETH / 5 ALGO) fills e2, its remainder
	// (6 ETH / 3 ALGO) rests open.
	orders := listOrders(t, repo)
	require.Len(t, orders, 5)

	var open []*domain.Order
	for _, o := range orders {
		require.NoError(t, o.Validate())
		if o.Filled != nil {
			require.NotNil(t, o.CounterpartyID)
		} else {
			require.Nil(t, o.CounterpartyID)
			open = append(open, o)
		}
	}
	require.Len(t, open, 1)
	last := open[0]
	require.True(t, last.BuyAmount.Equal(decimal.NewFromInt(6)), "buy %s", last.BuyAmount)
	require.True(t, last.SellAmount.Equal(decimal.NewFromInt(3)), "sell %s", last.SellAmount)
	require.NotNil(t, last.CreatorID)

	// counterparty links are mutual
	byID := make(map[int64]*domain.Order)
	for _, o := range orders {
		byID[o.ID] = o
	}
	for _, o := range orders {
		if o.CounterpartyID == nil {
			continue
		}
		other := byID[*o.CounterpartyID]
		require.Equal(t, o.ID, *other.CounterpartyID)
		require.Equal(t, *o.Filled, *other.Filled)
	}
}

func TestDegenerateOrdersNeverMatch(t *testing.T) {
	eng, repo := newTestEngine()
	ctx := context.Background()

	require.NoError(t, eng.Submit(ctx, order("alice", "ETH", "ALGO", 10, 10)))
	require.NoError(t, eng.Submit(ctx, order("bob", "ALGO", "ETH", 10, 10)))

	for _, o := range listOrders(t, repo) {
		require.True(t, o.Open(), "1:1 orders rest open")
	}
}

func TestRateNotSatisfiedNoMatch(t *testing.T) {
	eng, repo := newTestEngine()
	ctx := context.Background()

	// Resting order offers 10 ETH for 5 ALGO (rate 2). New order demands
	// 3 ETH per ALGO; 2 < 3, no fill.
	require.NoError(t, eng.Submit(ctx, order("erin", "ALGO", "ETH", 5, 10)))
	require.NoError(t, eng.Submit(ctx, order("nina", "ETH", "ALGO", 9, 3)))

	for _, o := range listOrders(t, repo) {
		require.True(t, o.Open())
	}
}

func TestLowestIDWinsTieBreak(t *testing.T) {
	eng, repo := newTestEngine()
	ctx := context.Background()

	require.NoError(t, eng.Submit(ctx, order("first", "ALGO", "ETH", 5, 10)))
	require.NoError(t, eng.Submit(ctx, order("second", "ALGO", "ETH", 5, 10)))
	require.NoError(t, eng.Submit(ctx, order("nina", "ETH", "ALGO", 10, 5)))

	orders := listOrders(t, repo)
	require.False(t, orders[0].Open(), "earliest resting order is consumed")
	require.True(t, orders[1].Open(), "later equivalent order is untouched")
}

// racingRepo wraps the in-memory store so that the first fill attempt loses
// its candidate to a competing fill, the way a second engine instance sharing
// the database would consume it between search and update.
type racingRepo struct {
	port.Repository
	rivalID  int64
	searches *int
}

func (r *racingRepo) BeginTx(ctx context.Context) (port.Tx, error) {
	tx, err := r.Repository.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return &racingTx{Tx: tx, rivalID: r.rivalID, searches: r.searches}, nil
}

type racingTx struct {
	port.Tx
	rivalID  int64
	searches *int
	raced    bool
}

func (t *racingTx) FindCounterparty(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	*t.searches++
	return t.Tx.FindCounterparty(ctx, o)
}

func (t *racingTx) FillPair(ctx context.Context, a, b *domain.Order, at time.Time) error {
	if !t.raced {
		t.raced = true
		// the rival's fill lands first, consuming our candidate
		if err := t.Tx.FillPair(ctx, &domain.Order{ID: t.rivalID}, b, at); err != nil {
			return err
		}
		return port.ErrFillConflict
	}
	return t.Tx.FillPair(ctx, a, b, at)
}

func TestFillConflictRetriesNextCandidate(t *testing.T) {
	repo := in_memory.NewMemoryRepo()
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	e1 := order("e1", "ALGO", "ETH", 5, 10)
	e2 := order("e2", "ALGO", "ETH", 5, 10)
	rival := order("rival", "ALGO", "ETH", 7, 14)
	for _, o := range []*domain.Order{e1, e2, rival} {
		require.NoError(t, tx.CreateOrder(ctx, o))
	}
	require.NoError(t, tx.Commit(ctx))

	searches := 0
	racing := &racingRepo{Repository: repo, rivalID: rival.ID, searches: &searches}
	eng := NewEngine(racing, in_memory.NewCache(), zap.NewNop())

	require.NoError(t, eng.Submit(ctx, order("nina", "ETH", "ALGO", 10, 5)))

	require.GreaterOrEqual(t, searches, 2, "a lost fill re-runs the search")

	orders := listOrders(t, repo)
	require.Len(t, orders, 4, "exact fill against the fallback, no remainder")

	byID := make(map[int64]*domain.Order)
	for _, o := range orders {
		byID[o.ID] = o
	}
	nina := orders[3]
	require.False(t, nina.Open())
	require.Equal(t, e2.ID, *nina.CounterpartyID, "the next eligible candidate is consumed")
	require.Equal(t, nina.ID, *byID[e2.ID].CounterpartyID)
	require.Equal(t, rival.ID, *byID[e1.ID].CounterpartyID, "the lost candidate belongs to the rival fill")
}

func TestBookSnapshotIdempotent(t *testing.T) {
	eng, _ := newTestEngine()
	ctx := context.Background()

	require.NoError(t, eng.Submit(ctx, order("alice", "ETH", "ALGO", 10, 5)))

	b1, err := eng.Book(ctx)
	require.NoError(t, err)
	b2, err := eng.Book(ctx)
	require.NoError(t, err)
	require.Equal(t, b1.Orders, b2.Orders)

	// a new trade invalidates the cached snapshot
	require.NoError(t, eng.Submit(ctx, order("bob", "BTC", "ETH", 3, 2)))
	b3, err := eng.Book(ctx)
	require.NoError(t, err)
	require.Len(t, b3.Orders, 2)
}

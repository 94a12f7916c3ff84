package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a signed request to exchange BuyAmount of BuyCurrency for
// SellAmount of SellCurrency. Orders are append-only history: once Filled
// is set the row never changes again.
type Order struct {
	ID             int64
	SenderPK       string
	ReceiverPK     string
	BuyCurrency    string
	SellCurrency   string
	BuyAmount      decimal.Decimal
	SellAmount     decimal.Decimal
	Signature      string
	Filled         *time.Time
	CounterpartyID *int64
	CreatorID      *int64
	CreatedAt      time.Time
}

var (
	ErrNonPositiveAmount = errors.New("buy and sell amounts must be positive")
	ErrSameCurrency      = errors.New("buy and sell currencies must differ")
)

// Validate enforces the persisted-order invariants.
func (o *Order) Validate() error {
	if !o.BuyAmount.IsPositive() || !o.SellAmount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if o.BuyCurrency == o.SellCurrency {
		return ErrSameCurrency
	}
	return nil
}

func (o *Order) Open() bool {
	return o.Filled == nil
}

// Degenerate reports whether the order offers a 1:1 amount swap; such orders
// rest in the book but are excluded from matching on either side.
func (o *Order) Degenerate() bool {
	return o.BuyAmount.Equal(o.SellAmount)
}

// SatisfiesRate reports whether resting order e's implied exchange rate
// (sellAmount/buyAmount) is at least as favorable as o demands
// (buyAmount/sellAmount). Evaluated cross-multiplied; amounts are positive.
func SatisfiesRate(e, o *Order) bool {
	return e.SellAmount.Mul(o.SellAmount).GreaterThanOrEqual(e.BuyAmount.Mul(o.BuyAmount))
}

// Mirrors reports whether resting order e trades the opposite side of o's
// currency pair.
func Mirrors(e, o *Order) bool {
	return e.SellCurrency == o.BuyCurrency && e.BuyCurrency == o.SellCurrency
}

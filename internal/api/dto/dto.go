package dto

import (
	"github.com/shopspring/decimal"

	"github.com/crosspair/exchange/internal/domain"
)

// OrderProjection is one element of the GET /order_book response.
type OrderProjection struct {
	SenderPK     string          `json:"sender_pk"`
	ReceiverPK   string          `json:"receiver_pk"`
	BuyCurrency  string          `json:"buy_currency"`
	SellCurrency string          `json:"sell_currency"`
	BuyAmount    decimal.Decimal `json:"buy_amount"`
	SellAmount   decimal.Decimal `json:"sell_amount"`
	Signature    string          `json:"signature"`
}

type OrderBookResponse struct {
	Data []OrderProjection `json:"data"`
}

func ProjectOrder(o *domain.Order) OrderProjection {
	return OrderProjection{
		SenderPK:     o.SenderPK,
		ReceiverPK:   o.ReceiverPK,
		BuyCurrency:  o.BuyCurrency,
		SellCurrency: o.SellCurrency,
		BuyAmount:    o.BuyAmount,
		SellAmount:   o.SellAmount,
		Signature:    o.Signature,
	}
}

func ProjectBook(b *domain.BookSnapshot) OrderBookResponse {
	res := OrderBookResponse{Data: make([]OrderProjection, len(b.Orders))}
	for i := range b.Orders {
		res.Data[i] = ProjectOrder(&b.Orders[i])
	}
	return res
}

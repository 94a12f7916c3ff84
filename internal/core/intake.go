package core

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/crosspair/exchange/internal/domain"
	"github.com/crosspair/exchange/internal/port"
	"github.com/crosspair/exchange/internal/signature"
)

var payloadColumns = []string{
	"sender_pk", "receiver_pk",
	"buy_currency", "sell_currency",
	"buy_amount", "sell_amount",
	"platform",
}

type tradePayload struct {
	SenderPK     string          `json:"sender_pk"`
	ReceiverPK   string          `json:"receiver_pk"`
	BuyCurrency  string          `json:"buy_currency"`
	SellCurrency string          `json:"sell_currency"`
	BuyAmount    decimal.Decimal `json:"buy_amount"`
	SellAmount   decimal.Decimal `json:"sell_amount"`
	Platform     string          `json:"platform"`
}

// Intake validates incoming trade requests, verifies their signatures and
// hands accepted orders to the matching engine. Every rejection, whatever
// the reason, lands the raw request in the audit log and yields false.
type Intake struct {
	repo     port.Repository
	registry *signature.Registry
	engine   *Engine
	log      *zap.Logger
}

func NewIntake(repo port.Repository, registry *signature.Registry, engine *Engine, log *zap.Logger) *Intake {
	return &Intake{repo: repo, registry: registry, engine: engine, log: log}
}

// Submit processes one raw trade request. The boolean is the full external
// contract: callers cannot distinguish a malformed request from a bad
// signature.
func (i *Intake) Submit(ctx context.Context, raw []byte) bool {
	var req struct {
		Sig     *string         `json:"sig"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw, &req); err != nil || req.Sig == nil || req.Payload == nil {
		return i.reject(ctx, raw, "missing sig or payload")
	}

	// Key presence is checked against the raw object so that absent and
	// zero-valued fields are told apart.
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(req.Payload, &keys); err != nil {
		return i.reject(ctx, raw, "payload is not an object")
	}
	for _, col := range payloadColumns {
		if _, ok := keys[col]; !ok {
			return i.reject(ctx, raw, "payload missing "+col)
		}
	}

	var p tradePayload
	if err := json.Unmarshal(req.Payload, &p); err != nil {
		return i.reject(ctx, raw, "payload field has wrong type")
	}

	order := &domain.Order{
		SenderPK:     p.SenderPK,
		ReceiverPK:   p.ReceiverPK,
		BuyCurrency:  p.BuyCurrency,
		SellCurrency: p.SellCurrency,
		BuyAmount:    p.BuyAmount,
		SellAmount:   p.SellAmount,
		Signature:    *req.Sig,
	}
	if err := order.Validate(); err != nil {
		return i.reject(ctx, raw, err.Error())
	}

	// The verified bytes are the payload object exactly as it arrived;
	// re-marshalling would reorder fields and break the signature.
	ok, err := i.registry.Verify(p.Platform, req.Payload, *req.Sig, p.SenderPK)
	if err != nil {
		return i.reject(ctx, raw, err.Error())
	}
	if !ok {
		return i.reject(ctx, raw, "signature does not verify")
	}

	if err := i.engine.Submit(ctx, order); err != nil {
		// Store fault, not a bad request: the transaction rolled back,
		// nothing is audit-logged, the caller still just sees false.
		i.log.Error("order processing failed", zap.Error(err))
		return false
	}
	return true
}

func (i *Intake) reject(ctx context.Context, raw []byte, reason string) bool {
	i.log.Info("trade request rejected", zap.String("reason", reason))
	if err := i.repo.AppendLog(ctx, string(raw)); err != nil {
		i.log.Error("audit log append failed", zap.Error(err))
	}
	return false
}

package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crosspair/exchange/internal/domain"
	"github.com/crosspair/exchange/internal/port"
)

var _ port.Repository = (*PgRepo)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id              BIGSERIAL PRIMARY KEY,
    sender_pk       TEXT NOT NULL,
    receiver_pk     TEXT NOT NULL,
    buy_currency    TEXT NOT NULL,
    sell_currency   TEXT NOT NULL,
    buy_amount      NUMERIC NOT NULL CHECK (buy_amount > 0),
    sell_amount     NUMERIC NOT NULL CHECK (sell_amount > 0),
    signature       TEXT NOT NULL DEFAULT '',
    filled          TIMESTAMPTZ,
    counterparty_id BIGINT REFERENCES orders(id),
    creator_id      BIGINT REFERENCES orders(id),
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (buy_currency <> sell_currency)
);
CREATE INDEX IF NOT EXISTS orders_open_pair
    ON orders (sell_currency, buy_currency, id) WHERE filled IS NULL;

CREATE TABLE IF NOT EXISTS logs (
    id      BIGSERIAL PRIMARY KEY,
    logtime TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    message TEXT NOT NULL
);
`

const orderColumns = `id, sender_pk, receiver_pk, buy_currency, sell_currency,
buy_amount, sell_amount, signature, filled, counterparty_id, creator_id, created_at`

type PgRepo struct {
	pool *pgxpool.Pool
}

// call Close when finished with the database.
func NewPgRepo(ctx context.Context, dsn string) (*PgRepo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	return &PgRepo{pool: pool}, nil
}

func (p *PgRepo) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// EnsureSchema creates the orders and logs tables if absent.
func (p *PgRepo) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, schema)
	return err
}

func (p *PgRepo) BeginTx(ctx context.Context) (port.Tx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("pg: begin tx: %w", err)
	}
	return &pgTx{tx: tx}, nil
}

func (p *PgRepo) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

func (p *PgRepo) AppendLog(ctx context.Context, message string) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO logs(logtime, message) VALUES(NOW(), $1)`, message)
	return err
}

func (p *PgRepo) ListLogs(ctx context.Context) ([]*domain.LogEntry, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, logtime, message FROM logs ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*domain.LogEntry
	for rows.Next() {
		var l domain.LogEntry
		if err := rows.Scan(&l.ID, &l.Logtime, &l.Message); err != nil {
			return nil, err
		}
		res = append(res, &l)
	}
	return res, rows.Err()
}

type pgTx struct {
	tx pgx.Tx
}

var _ port.Tx = (*pgTx)(nil)

func (t *pgTx) CreateOrder(ctx context.Context, o *domain.Order) error {
	if o == nil {
		return errors.New("nil order")
	}
	return t.tx.QueryRow(ctx, `
INSERT INTO orders(sender_pk, receiver_pk, buy_currency, sell_currency,
                   buy_amount, sell_amount, signature, creator_id)
VALUES($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING id, created_at
`, o.SenderPK, o.ReceiverPK, o.BuyCurrency, o.SellCurrency,
		o.BuyAmount, o.SellAmount, o.Signature, o.CreatorID).
		Scan(&o.ID, &o.CreatedAt)
}

// FindCounterparty selects the lowest-id open order on the mirrored currency
// pair whose implied rate satisfies the new order's; the rate test is
// cross-multiplied (amounts are positive) and 1:1 orders are excluded.
func (t *pgTx) FindCounterparty(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	row := t.tx.QueryRow(ctx, `
SELECT `+orderColumns+`
FROM orders
WHERE filled IS NULL
  AND sell_currency = $1
  AND buy_currency = $2
  AND sell_amount * $4 >= buy_amount * $3
  AND sell_amount <> buy_amount
ORDER BY id ASC
LIMIT 1
`, o.BuyCurrency, o.SellCurrency, o.BuyAmount, o.SellAmount)

	match, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return match, nil
}

// FillPair runs the two conditional updates inside a savepoint so that a
// conflict on the second side cannot leave half a fill applied in the
// enclosing transaction.
func (t *pgTx) FillPair(ctx context.Context, a, b *domain.Order, at time.Time) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fillOne(ctx, sp, a.ID, b.ID, at); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	if err := fillOne(ctx, sp, b.ID, a.ID, at); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return err
	}

	aFilled, bFilled := at, at
	aCp, bCp := b.ID, a.ID
	a.Filled, a.CounterpartyID = &aFilled, &aCp
	b.Filled, b.CounterpartyID = &bFilled, &bCp
	return nil
}

func fillOne(ctx context.Context, tx pgx.Tx, id, counterpartyID int64, at time.Time) error {
	ct, err := tx.Exec(ctx, `
UPDATE orders SET filled = $1, counterparty_id = $2
WHERE id = $3 AND filled IS NULL
`, at, counterpartyID, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return port.ErrFillConflict
	}
	return nil
}

func (t *pgTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.SenderPK, &o.ReceiverPK, &o.BuyCurrency, &o.SellCurrency,
		&o.BuyAmount, &o.SellAmount, &o.Signature, &o.Filled, &o.CounterpartyID,
		&o.CreatorID, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

package core

import (
	"context"

	"github.com/crosspair/exchange/internal/port"
)

// withTx runs fn inside a store transaction: committed when fn succeeds,
// rolled back on any error so a failed match cascade leaves no partial fill
// behind.
func withTx(ctx context.Context, repo port.Repository, fn func(port.Tx) error) error {
	tx, err := repo.BeginTx(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}

package port

import (
	"context"

	"github.com/crosspair/exchange/internal/domain"
)

type Cache interface {
	SetBook(ctx context.Context, b *domain.BookSnapshot) error
	GetBook(ctx context.Context) (*domain.BookSnapshot, error)
	Invalidate(ctx context.Context) error
}

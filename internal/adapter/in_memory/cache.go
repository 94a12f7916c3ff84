package in_memory

import (
	"context"
	"sync"

	"github.com/crosspair/exchange/internal/domain"
	"github.com/crosspair/exchange/internal/port"
)

type Cache struct {
	mu   sync.Mutex
	book *domain.BookSnapshot
}

var _ port.Cache = (*Cache)(nil)

func NewCache() *Cache {
	return &Cache{}
}

func (c *Cache) SetBook(ctx context.Context, b *domain.BookSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.book = b.DeepCopy()
	return nil
}

func (c *Cache) GetBook(ctx context.Context) (*domain.BookSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.book == nil {
		return nil, nil
	}
	return c.book.DeepCopy(), nil
}

func (c *Cache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.book = nil
	return nil
}

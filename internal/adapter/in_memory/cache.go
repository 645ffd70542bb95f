package in_memory

import (
	"context"
	"sync"

	"github.com/olyamironova/matching-engine/internal/domain"
	"github.com/olyamironova/matching-engine/internal/port"
)

var _ port.Cache = (*Cache)(nil)

type Cache struct {
	mu    sync.Mutex
	store map[domain.Instrument]*domain.BookSnapshot
}

func NewCache() *Cache {
	return &Cache{store: make(map[domain.Instrument]*domain.BookSnapshot)}
}

func (c *Cache) SetBook(ctx context.Context, instrument domain.Instrument, snap *domain.BookSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[instrument] = snap.DeepCopy()
	return nil
}

func (c *Cache) GetBook(ctx context.Context, instrument domain.Instrument) (*domain.BookSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.store[instrument]
	if !ok {
		return nil, nil
	}
	return snap.DeepCopy(), nil
}

func (c *Cache) Invalidate(ctx context.Context, instrument domain.Instrument) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, instrument)
	return nil
}

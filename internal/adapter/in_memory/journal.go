package in_memory

import (
	"context"
	"sync"

	"github.com/olyamironova/matching-engine/internal/domain"
	"github.com/olyamironova/matching-engine/internal/port"
)

var _ port.Journal = (*Journal)(nil)

// Journal keeps the audit trail in memory; used in tests and when no
// Postgres DSN is configured.
type Journal struct {
	mu     sync.Mutex
	orders map[uint64]domain.Order
	trades []domain.TradeMessage
}

func NewJournal() *Journal {
	return &Journal{orders: make(map[uint64]domain.Order)}
}

func (j *Journal) SaveOrder(ctx context.Context, o *domain.Order) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.orders[o.OrderID] = *o
	return nil
}

func (j *Journal) SaveTrade(ctx context.Context, t *domain.TradeMessage) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades = append(j.trades, *t)
	return nil
}

func (j *Journal) Order(orderID uint64) (domain.Order, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	o, ok := j.orders[orderID]
	return o, ok
}

func (j *Journal) Trades() []domain.TradeMessage {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]domain.TradeMessage(nil), j.trades...)
}

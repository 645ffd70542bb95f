package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/olyamironova/matching-engine/internal/domain"
	"github.com/olyamironova/matching-engine/internal/port"
)

var _ port.Journal = (*Journal)(nil)

// Journal writes accepted orders and executed trades to Postgres as an
// audit trail. Insert-only from the engine's perspective; nothing is
// ever loaded back into the engine.
type Journal struct {
	pool *pgxpool.Pool
}

// call Close when finished working with the database.
func NewJournal(ctx context.Context, dsn string) (*Journal, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	return &Journal{pool: pool}, nil
}

func (j *Journal) Close() {
	if j.pool != nil {
		j.pool.Close()
	}
}

func (j *Journal) SaveOrder(ctx context.Context, o *domain.Order) error {
	if o == nil {
		return errors.New("nil order")
	}
	_, err := j.pool.Exec(ctx, `
INSERT INTO orders(order_id, trader_id, side, instrument, quantity, price, status, updated_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (order_id) DO UPDATE SET
  quantity = EXCLUDED.quantity,
  price = EXCLUDED.price,
  status = EXCLUDED.status,
  updated_at = EXCLUDED.updated_at
`, o.OrderID, o.TraderID, string(o.Side), string(o.Instrument),
		o.Quantity, o.Price, string(o.Status), o.Timestamp)
	return err
}

func (j *Journal) SaveTrade(ctx context.Context, t *domain.TradeMessage) error {
	if t == nil {
		return errors.New("nil trade")
	}
	_, err := j.pool.Exec(ctx, `
INSERT INTO trades(id, bid_order_id, offer_order_id, instrument, price, quantity, executed_at)
VALUES($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO NOTHING
`, t.TradeID, t.BidOrderID, t.OfferOrderID, string(t.Instrument),
		t.TradePrice, t.TradeQuantity, t.Timestamp)
	return err
}

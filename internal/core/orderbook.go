package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/olyamironova/matching-engine/internal/domain"
)

// OrderBook holds one instrument's resting orders: two priority-ordered
// side lists plus an id index over both. Every order in a side list is in
// the index and vice versa; the owning side is re-sorted after every
// mutation before the next top-of-book read.
type OrderBook struct {
	Instrument domain.Instrument

	bids   []*domain.Order
	offers []*domain.Order
	byID   map[uint64]*domain.Order

	now func() time.Time
}

func NewOrderBook(instrument domain.Instrument) *OrderBook {
	return &OrderBook{
		Instrument: instrument,
		byID:       make(map[uint64]*domain.Order),
		now:        time.Now,
	}
}

func (ob *OrderBook) Insert(o *domain.Order) {
	ob.byID[o.OrderID] = o
	if o.Side == domain.Bid {
		ob.bids = append(ob.bids, o)
	} else {
		ob.offers = append(ob.offers, o)
	}
	ob.sortSide(o.Side)
}

// Modify updates price and quantity and resets the timestamp, so the
// order drops to the back of its new price level. No-op on unknown id.
func (ob *OrderBook) Modify(orderID uint64, price decimal.Decimal, quantity int64) bool {
	o, ok := ob.byID[orderID]
	if !ok {
		return false
	}
	o.Price = price
	o.Quantity = quantity
	o.Timestamp = ob.now()
	ob.sortSide(o.Side)
	return true
}

// PartFill reduces the order to its remaining quantity after a partial
// match. The timestamp reset matches the original book behavior.
func (ob *OrderBook) PartFill(orderID uint64, remaining int64) {
	o, ok := ob.byID[orderID]
	if !ok {
		return
	}
	o.Quantity = remaining
	o.Status = domain.PartFilled
	o.Timestamp = ob.now()
	ob.sortSide(o.Side)
}

func (ob *OrderBook) FullyExecute(orderID uint64) {
	o, ok := ob.byID[orderID]
	if !ok {
		return
	}
	o.Status = domain.FullyExecuted
	ob.remove(o)
}

func (ob *OrderBook) Cancel(orderID uint64) {
	o, ok := ob.byID[orderID]
	if !ok {
		return
	}
	o.Status = domain.Canceled
	ob.remove(o)
}

// Remove drops an order without touching its status; used by trader-side
// mirrors that take the status from the received report.
func (ob *OrderBook) Remove(orderID uint64) {
	if o, ok := ob.byID[orderID]; ok {
		ob.remove(o)
	}
}

func (ob *OrderBook) remove(o *domain.Order) {
	delete(ob.byID, o.OrderID)
	if o.Side == domain.Bid {
		ob.bids = removeFromSide(ob.bids, o.OrderID)
	} else {
		ob.offers = removeFromSide(ob.offers, o.OrderID)
	}
}

func (ob *OrderBook) BestBid() *domain.Order {
	if len(ob.bids) == 0 {
		return nil
	}
	return ob.bids[0]
}

func (ob *OrderBook) BestOffer() *domain.Order {
	if len(ob.offers) == 0 {
		return nil
	}
	return ob.offers[0]
}

func (ob *OrderBook) Get(orderID uint64) (*domain.Order, bool) {
	o, ok := ob.byID[orderID]
	return o, ok
}

func (ob *OrderBook) Len() int { return len(ob.byID) }

func (ob *OrderBook) Snapshot() *domain.BookSnapshot {
	snap := &domain.BookSnapshot{Instrument: ob.Instrument, Timestamp: ob.now()}
	for _, o := range ob.bids {
		snap.Bids = append(snap.Bids, *o)
	}
	for _, o := range ob.offers {
		snap.Offers = append(snap.Offers, *o)
	}
	return snap
}

// bids: price desc, FIFO on Timestamp; offers: price asc, FIFO on Timestamp
func (ob *OrderBook) sortSide(side domain.Side) {
	if side == domain.Bid {
		sort.SliceStable(ob.bids, func(i, j int) bool {
			if !ob.bids[i].Price.Equal(ob.bids[j].Price) {
				return ob.bids[i].Price.GreaterThan(ob.bids[j].Price)
			}
			return ob.bids[i].Timestamp.Before(ob.bids[j].Timestamp)
		})
		return
	}
	sort.SliceStable(ob.offers, func(i, j int) bool {
		if !ob.offers[i].Price.Equal(ob.offers[j].Price) {
			return ob.offers[i].Price.LessThan(ob.offers[j].Price)
		}
		return ob.offers[i].Timestamp.Before(ob.offers[j].Timestamp)
	})
}

func removeFromSide(orders []*domain.Order, orderID uint64) []*domain.Order {
	for i, o := range orders {
		if o.OrderID == orderID {
			return append(orders[:i], orders[i+1:]...)
		}
	}
	return orders
}

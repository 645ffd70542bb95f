package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/olyamironova/matching-engine/internal/domain"
	"github.com/olyamironova/matching-engine/internal/port"
)

var decimalZero = decimal.Zero

// batch tracks the non-subscriber handles that received a point-to-point
// report during one request and are therefore owed the closing marker.
// Handles stay in the set even if their trader is deregistered before
// the batch closes.
type batch struct {
	toNotify map[string]port.Receiver
}

func newBatch() *batch {
	return &batch{toNotify: make(map[string]port.Receiver)}
}

func (b *batch) note(r port.Receiver) {
	b.toNotify[r.SessionID()] = r
}

// match pairs the best bid and best offer of one instrument for as long
// as they cross. Each iteration reduces resting quantity or removes an
// order, so the loop terminates.
func (e *Engine) match(book *OrderBook, b *batch) {
	for {
		bid := book.BestBid()
		offer := book.BestOffer()
		if bid == nil || offer == nil {
			break
		}
		if bid.Price.LessThan(offer.Price) {
			break
		}
		e.log.Info("matching orders",
			zap.Uint64("bid_order_id", bid.OrderID),
			zap.Uint64("offer_order_id", offer.OrderID),
			zap.String("instrument", string(book.Instrument)))
		e.executeTrade(book, bid, offer, b)
	}
}

func (e *Engine) executeTrade(book *OrderBook, bid, offer *domain.Order, b *batch) {
	tradeQuantity := min(bid.Quantity, offer.Quantity)
	trade := domain.TradeMessage{
		TradeID:       uuid.NewString(),
		BidOrderID:    bid.OrderID,
		OfferOrderID:  offer.OrderID,
		Instrument:    book.Instrument,
		TradePrice:    tradePrice(bid, offer),
		TradeQuantity: tradeQuantity,
		Timestamp:     e.now(),
	}
	e.record(trade)
	e.journalTrade(&trade)

	bidRep := e.settle(book, bid, tradeQuantity, b)
	offerRep := e.settle(book, offer, tradeQuantity, b)

	e.tellTradeToOwner(bidRep, trade, b)
	e.tellTradeToOwner(offerRep, trade, b)

	e.log.Info("trade completed",
		zap.String("trade_id", trade.TradeID),
		zap.String("price", trade.TradePrice.String()),
		zap.Int64("quantity", trade.TradeQuantity))
}

// tradePrice implements the passive-price rule: with equal prices the
// common price trades; otherwise the earlier order (smaller id) sets the
// price and the aggressor is improved to it.
func tradePrice(bid, offer *domain.Order) decimal.Decimal {
	if bid.Price.Equal(offer.Price) {
		return bid.Price
	}
	if offer.OrderID > bid.OrderID {
		return bid.Price
	}
	return offer.Price
}

// settle applies one side of a trade: partial fill if quantity remains,
// full execution otherwise (which also drops the order from the global
// index). The resulting report goes to history, subscribers and, for a
// non-subscribing owner, point-to-point.
func (e *Engine) settle(book *OrderBook, o *domain.Order, tradeQuantity int64, b *batch) domain.ExecutionReport {
	var rep domain.ExecutionReport
	if o.Quantity > tradeQuantity {
		book.PartFill(o.OrderID, o.Quantity-tradeQuantity)
		rep = domain.NewReport(o, domain.ExecUpdate)
	} else {
		book.FullyExecute(o.OrderID)
		delete(e.orders, o.OrderID)
		rep = domain.NewReport(o, domain.ExecRemove)
	}
	e.record(rep)
	e.journalOrder(o)
	if r, ok := e.nonSubscribers[o.TraderID]; ok {
		b.note(r)
		r.Deliver(rep)
	}
	return rep
}

func (e *Engine) tellTradeToOwner(rep domain.ExecutionReport, trade domain.TradeMessage, b *batch) {
	r, ok := e.nonSubscribers[rep.TraderID]
	if !ok {
		return
	}
	b.note(r)
	r.Deliver(trade)
	if rep.ExecType == domain.ExecRemove {
		e.tryReleaseTrader(rep.TraderID)
	}
}

// closeBatch emits the single marker that ends the request's causal set:
// once into history and to subscribers, and once to every non-subscriber
// handle touched during the batch.
func (e *Engine) closeBatch(b *batch) {
	marker := domain.BatchComplete{}
	e.record(marker)
	for _, r := range b.toNotify {
		r.Deliver(marker)
	}
}

func rejectedReport(traderID string, quantity int64, price decimal.Decimal, reason domain.RejectionReason, ts time.Time) domain.ExecutionReport {
	return domain.ExecutionReport{
		TraderID:        traderID,
		Quantity:        quantity,
		Price:           price,
		Status:          domain.Rejected,
		ExecType:        domain.ExecRejected,
		RejectionReason: reason,
		Timestamp:       ts,
	}
}

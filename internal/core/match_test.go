package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olyamironova/matching-engine/internal/domain"
)

func tradesOf(events []domain.Event) []domain.TradeMessage {
	var trades []domain.TradeMessage
	for _, ev := range events {
		if t, ok := ev.(domain.TradeMessage); ok {
			trades = append(trades, t)
		}
	}
	return trades
}

func reportsOf(events []domain.Event) []domain.ExecutionReport {
	var reps []domain.ExecutionReport
	for _, ev := range events {
		if r, ok := ev.(domain.ExecutionReport); ok {
			reps = append(reps, r)
		}
	}
	return reps
}

func TestFullExecutionAtEqualPrice(t *testing.T) {
	e := newTestEngine()
	buyer := newFakeReceiver("s-buyer")
	seller := newFakeReceiver("s-seller")

	send(e, newOrder("alice", domain.Bid, "GOLD", 2, "2"), buyer)
	buyer.Reset()
	send(e, newOrder("bob", domain.Offer, "GOLD", 2, "2"), seller)

	// one trade at the common price
	sellerTrades := tradesOf(seller.Events())
	require.Len(t, sellerTrades, 1)
	assert.True(t, sellerTrades[0].TradePrice.Equal(dec("2")))
	assert.Equal(t, int64(2), sellerTrades[0].TradeQuantity)

	buyerTrades := tradesOf(buyer.Events())
	require.Len(t, buyerTrades, 1)
	assert.Equal(t, sellerTrades[0].TradeID, buyerTrades[0].TradeID)

	// both sides fully executed and removed
	buyerReps := reportsOf(buyer.Events())
	require.Len(t, buyerReps, 1)
	assert.Equal(t, domain.ExecRemove, buyerReps[0].ExecType)
	assert.Equal(t, domain.FullyExecuted, buyerReps[0].Status)

	sellerReps := reportsOf(seller.Events())
	require.Len(t, sellerReps, 2)
	assert.Equal(t, domain.ExecAdd, sellerReps[0].ExecType)
	assert.Equal(t, domain.ExecRemove, sellerReps[1].ExecType)

	// both batches closed towards each handle
	assert.IsType(t, domain.BatchComplete{}, buyer.Events()[len(buyer.Events())-1])
	assert.IsType(t, domain.BatchComplete{}, seller.Events()[len(seller.Events())-1])

	// book and global index are empty
	book := e.books["GOLD"]
	require.NotNil(t, book)
	assert.Nil(t, book.BestBid())
	assert.Nil(t, book.BestOffer())
	assert.Empty(t, e.orders)

	// both traders owned nothing anymore and were deregistered
	assert.Empty(t, e.nonSubscribers)
	assert.Empty(t, e.watches)
}

func TestPassivePriceRule(t *testing.T) {
	t.Run("resting bid sets price", func(t *testing.T) {
		e := newTestEngine()
		r1 := newFakeReceiver("s1")
		r2 := newFakeReceiver("s2")
		send(e, newOrder("alice", domain.Bid, "GOLD", 2, "3"), r1)
		send(e, newOrder("bob", domain.Offer, "GOLD", 2, "2"), r2)

		trades := tradesOf(r2.Events())
		require.Len(t, trades, 1)
		assert.True(t, trades[0].TradePrice.Equal(dec("3")))
	})

	t.Run("resting offer sets price", func(t *testing.T) {
		e := newTestEngine()
		r1 := newFakeReceiver("s1")
		r2 := newFakeReceiver("s2")
		send(e, newOrder("alice", domain.Offer, "GOLD", 2, "2"), r1)
		send(e, newOrder("bob", domain.Bid, "GOLD", 2, "3"), r2)

		trades := tradesOf(r2.Events())
		require.Len(t, trades, 1)
		assert.True(t, trades[0].TradePrice.Equal(dec("2")))
	})
}

func TestAggressorSweepsMultipleRestingOrders(t *testing.T) {
	e := newTestEngine()
	r1 := newFakeReceiver("s1")
	r2 := newFakeReceiver("s2")
	r3 := newFakeReceiver("s3")

	send(e, newOrder("alice", domain.Bid, "GOLD", 2, "10"), r1)
	send(e, newOrder("bob", domain.Bid, "GOLD", 3, "10"), r2)
	send(e, newOrder("carol", domain.Offer, "GOLD", 4, "9"), r3)

	trades := tradesOf(r3.Events())
	require.Len(t, trades, 2)
	assert.Equal(t, int64(2), trades[0].TradeQuantity)
	assert.True(t, trades[0].TradePrice.Equal(dec("10")))
	assert.Equal(t, int64(2), trades[1].TradeQuantity)
	assert.True(t, trades[1].TradePrice.Equal(dec("10")))

	// alice filled out, bob part-filled, carol gone
	book := e.books["GOLD"]
	require.NotNil(t, book.BestBid())
	assert.Equal(t, "bob", book.BestBid().TraderID)
	assert.Equal(t, int64(1), book.BestBid().Quantity)
	assert.Equal(t, domain.PartFilled, book.BestBid().Status)
	assert.Nil(t, book.BestOffer())

	// no crossable pair remains
	assert.True(t, book.BestBid() == nil || book.BestOffer() == nil ||
		book.BestBid().Price.LessThan(book.BestOffer().Price))

	// alice fully done and deregistered; bob and carol's owner state
	_, aliceTracked := e.nonSubscribers["alice"]
	assert.False(t, aliceTracked)
	_, bobTracked := e.nonSubscribers["bob"]
	assert.True(t, bobTracked)
	_, carolTracked := e.nonSubscribers["carol"]
	assert.False(t, carolTracked)
}

func TestModifyCanTriggerMatch(t *testing.T) {
	e := newTestEngine()
	r1 := newFakeReceiver("s1")
	r2 := newFakeReceiver("s2")

	addEv := sendWait(e, newOrder("alice", domain.Bid, "GOLD", 2, "5"), r1)
	add := addEv.(domain.ExecutionReport)
	send(e, newOrder("bob", domain.Offer, "GOLD", 2, "6"), r2)
	r1.Reset()
	r2.Reset()

	send(e, domain.ModifyOrderRequest{
		OrderID:  add.OrderID,
		TraderID: "alice",
		Quantity: 2,
		Price:    dec("6"),
	}, r1)

	// bid was modified up to the offer's price; bid has the smaller id,
	// so its new price trades
	trades := tradesOf(r1.Events())
	require.Len(t, trades, 1)
	assert.True(t, trades[0].TradePrice.Equal(dec("6")))
	assert.Equal(t, int64(2), trades[0].TradeQuantity)

	reps := reportsOf(r1.Events())
	require.Len(t, reps, 2)
	assert.Equal(t, domain.ExecUpdate, reps[0].ExecType)
	assert.Equal(t, domain.ExecRemove, reps[1].ExecType)

	assert.Empty(t, e.orders)
}

func TestHistoryOrderWithinBatch(t *testing.T) {
	e := newTestEngine()
	r1 := newFakeReceiver("s1")
	r2 := newFakeReceiver("s2")

	send(e, newOrder("alice", domain.Bid, "GOLD", 2, "2"), r1)
	send(e, newOrder("bob", domain.Offer, "GOLD", 2, "2"), r2)

	events := e.history.Snapshot()
	require.Len(t, events, 7)
	// batch 1: alice's resting bid
	assert.Equal(t, domain.ExecAdd, events[0].(domain.ExecutionReport).ExecType)
	assert.IsType(t, domain.BatchComplete{}, events[1])
	// batch 2: bob's offer, the trade, both removals, the marker
	assert.Equal(t, domain.ExecAdd, events[2].(domain.ExecutionReport).ExecType)
	assert.IsType(t, domain.TradeMessage{}, events[3])
	assert.Equal(t, domain.ExecRemove, events[4].(domain.ExecutionReport).ExecType)
	assert.Equal(t, domain.ExecRemove, events[5].(domain.ExecutionReport).ExecType)
	assert.IsType(t, domain.BatchComplete{}, events[6])
}

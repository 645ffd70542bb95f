package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string
type Status string

const (
	Bid   Side = "BID"
	Offer Side = "OFFER"

	Active        Status = "ACTIVE"
	PartFilled    Status = "PARTFILLED"
	FullyExecuted Status = "FULLY_EXECUTED"
	Canceled      Status = "CANCELED"
	Rejected      Status = "REJECTED"
)

// Instrument is an opaque tradable symbol; order books are keyed by it.
type Instrument string

// Order identity (id, trader, side, instrument) is fixed at creation;
// price, quantity, status and timestamp change over its lifetime.
// Timestamp is the time of the last mutation and is the tie-breaker
// within a price level, so a modify forfeits queue position.
type Order struct {
	OrderID    uint64
	TraderID   string
	Side       Side
	Instrument Instrument
	Quantity   int64
	Price      decimal.Decimal
	Status     Status
	Timestamp  time.Time
}

func (o *Order) Clone() *Order {
	c := *o
	return &c
}

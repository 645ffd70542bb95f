package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Request is a client-to-engine message. Every request carries the id of
// the trader issuing it; the communication handle it arrived on is passed
// alongside and acts as the authorization capability for that id.
type Request interface {
	Trader() string
}

type NewOrderRequest struct {
	TraderID   string
	Side       Side
	Instrument Instrument
	Quantity   int64
	Price      decimal.Decimal
	Timestamp  time.Time
}

func (r NewOrderRequest) Trader() string { return r.TraderID }

type ModifyOrderRequest struct {
	OrderID  uint64
	TraderID string
	Quantity int64
	Price    decimal.Decimal
}

func (r ModifyOrderRequest) Trader() string { return r.TraderID }

type CancelOrderRequest struct {
	OrderID  uint64
	TraderID string
}

func (r CancelOrderRequest) Trader() string { return r.TraderID }

type SubscribeRequest struct {
	TraderID string
}

func (r SubscribeRequest) Trader() string { return r.TraderID }

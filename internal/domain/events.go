package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ExecType string
type RejectionReason string

const (
	ExecAdd      ExecType = "ADD"
	ExecUpdate   ExecType = "UPDATE"
	ExecRemove   ExecType = "REMOVE"
	ExecRejected ExecType = "REJECTED"

	InvalidPrice    RejectionReason = "INVALID_PRICE"
	InvalidQuantity RejectionReason = "INVALID_QUANTITY"
	InvalidTraderID RejectionReason = "INVALID_TRADER_ID"
	InvalidOrderID  RejectionReason = "INVALID_ORDER_ID"
)

// Event is anything the engine emits towards traders: execution reports,
// trade messages and the markers that delimit batches and history replay.
type Event interface {
	Kind() string
}

type ExecutionReport struct {
	OrderID         uint64
	TraderID        string
	Side            Side
	Instrument      Instrument
	Quantity        int64
	Price           decimal.Decimal
	Status          Status
	ExecType        ExecType
	RejectionReason RejectionReason
	Timestamp       time.Time
}

func (ExecutionReport) Kind() string { return "execution_report" }

// NewReport snapshots an order's current state into a report.
func NewReport(o *Order, execType ExecType) ExecutionReport {
	return ExecutionReport{
		OrderID:    o.OrderID,
		TraderID:   o.TraderID,
		Side:       o.Side,
		Instrument: o.Instrument,
		Quantity:   o.Quantity,
		Price:      o.Price,
		Status:     o.Status,
		ExecType:   execType,
		Timestamp:  o.Timestamp,
	}
}

type TradeMessage struct {
	TradeID       string
	BidOrderID    uint64
	OfferOrderID  uint64
	Instrument    Instrument
	TradePrice    decimal.Decimal
	TradeQuantity int64
	Timestamp     time.Time
}

func (TradeMessage) Kind() string { return "trade" }

// BatchComplete closes the causal set of notifications produced by one
// accepted request. Receivers apply buffered reports only upon seeing it.
type BatchComplete struct{}

func (BatchComplete) Kind() string { return "batch_complete" }

// SubscriptionAck is sent once, after history replay to a new subscriber.
type SubscriptionAck struct{}

func (SubscriptionAck) Kind() string { return "subscription_ack" }

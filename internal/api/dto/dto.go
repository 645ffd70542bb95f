package dto

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/olyamironova/matching-engine/internal/domain"
)

// Message is the framing used on the websocket stream: a type tag plus
// the JSON payload for that type.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	TypeNewOrder        = "new_order"
	TypeModifyOrder     = "modify_order"
	TypeCancelOrder     = "cancel_order"
	TypeSubscribe       = "subscribe"
	TypeExecutionReport = "execution_report"
	TypeTrade           = "trade"
	TypeBatchComplete   = "batch_complete"
	TypeSubscriptionAck = "subscription_ack"
)

// Numeric fields carry no binding rules: a zero quantity or order id is
// the engine's call, which answers with a rejected execution report.
type NewOrderRequest struct {
	TraderID   string          `json:"trader_id,omitempty"`
	Side       string          `json:"side" binding:"required"`
	Instrument string          `json:"instrument" binding:"required"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Timestamp  time.Time       `json:"timestamp,omitempty"`
}

type ModifyOrderRequest struct {
	TraderID string          `json:"trader_id,omitempty"`
	OrderID  uint64          `json:"order_id"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type CancelOrderRequest struct {
	TraderID string `json:"trader_id,omitempty"`
	OrderID  uint64 `json:"order_id"`
}

type SubscribeRequest struct {
	TraderID string `json:"trader_id,omitempty"`
}

type ExecutionReport struct {
	OrderID         uint64          `json:"order_id"`
	TraderID        string          `json:"trader_id"`
	Side            string          `json:"side,omitempty"`
	Instrument      string          `json:"instrument,omitempty"`
	Quantity        int64           `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	Status          string          `json:"status"`
	ExecType        string          `json:"exec_type"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

type Trade struct {
	TradeID       string          `json:"trade_id"`
	BidOrderID    uint64          `json:"bid_order_id"`
	OfferOrderID  uint64          `json:"offer_order_id"`
	Instrument    string          `json:"instrument"`
	TradePrice    decimal.Decimal `json:"trade_price"`
	TradeQuantity int64           `json:"trade_quantity"`
	Timestamp     time.Time       `json:"timestamp"`
}

type Order struct {
	OrderID    uint64          `json:"order_id"`
	TraderID   string          `json:"trader_id"`
	Side       string          `json:"side"`
	Instrument string          `json:"instrument"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Status     string          `json:"status"`
	Timestamp  time.Time       `json:"timestamp"`
}

type BookResponse struct {
	Instrument string    `json:"instrument"`
	Bids       []Order   `json:"bids"`
	Offers     []Order   `json:"offers"`
	Timestamp  time.Time `json:"timestamp"`
}

func FromReport(rep domain.ExecutionReport) ExecutionReport {
	return ExecutionReport{
		OrderID:         rep.OrderID,
		TraderID:        rep.TraderID,
		Side:            string(rep.Side),
		Instrument:      string(rep.Instrument),
		Quantity:        rep.Quantity,
		Price:           rep.Price,
		Status:          string(rep.Status),
		ExecType:        string(rep.ExecType),
		RejectionReason: string(rep.RejectionReason),
		Timestamp:       rep.Timestamp,
	}
}

func FromTrade(t domain.TradeMessage) Trade {
	return Trade{
		TradeID:       t.TradeID,
		BidOrderID:    t.BidOrderID,
		OfferOrderID:  t.OfferOrderID,
		Instrument:    string(t.Instrument),
		TradePrice:    t.TradePrice,
		TradeQuantity: t.TradeQuantity,
		Timestamp:     t.Timestamp,
	}
}

func FromOrder(o domain.Order) Order {
	return Order{
		OrderID:    o.OrderID,
		TraderID:   o.TraderID,
		Side:       string(o.Side),
		Instrument: string(o.Instrument),
		Quantity:   o.Quantity,
		Price:      o.Price,
		Status:     string(o.Status),
		Timestamp:  o.Timestamp,
	}
}

func FromSnapshot(snap *domain.BookSnapshot) BookResponse {
	res := BookResponse{
		Instrument: string(snap.Instrument),
		Bids:       make([]Order, 0, len(snap.Bids)),
		Offers:     make([]Order, 0, len(snap.Offers)),
		Timestamp:  snap.Timestamp,
	}
	for _, o := range snap.Bids {
		res.Bids = append(res.Bids, FromOrder(o))
	}
	for _, o := range snap.Offers {
		res.Offers = append(res.Offers, FromOrder(o))
	}
	return res
}

// EncodeEvent frames an engine event for the websocket stream.
func EncodeEvent(ev domain.Event) (Message, error) {
	switch ev := ev.(type) {
	case domain.ExecutionReport:
		data, err := json.Marshal(FromReport(ev))
		if err != nil {
			return Message{}, err
		}
		return Message{Type: TypeExecutionReport, Data: data}, nil
	case domain.TradeMessage:
		data, err := json.Marshal(FromTrade(ev))
		if err != nil {
			return Message{}, err
		}
		return Message{Type: TypeTrade, Data: data}, nil
	case domain.BatchComplete:
		return Message{Type: TypeBatchComplete}, nil
	case domain.SubscriptionAck:
		return Message{Type: TypeSubscriptionAck}, nil
	default:
		return Message{}, fmt.Errorf("dto: unknown event %T", ev)
	}
}

// DecodeRequest parses a request frame. sessionTrader is the trader id
// the session was opened with, used when the frame does not carry one.
func DecodeRequest(msg Message, sessionTrader string) (domain.Request, error) {
	switch msg.Type {
	case TypeNewOrder:
		var req NewOrderRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return nil, err
		}
		return domain.NewOrderRequest{
			TraderID:   orDefault(req.TraderID, sessionTrader),
			Side:       domain.Side(req.Side),
			Instrument: domain.Instrument(req.Instrument),
			Quantity:   req.Quantity,
			Price:      req.Price,
			Timestamp:  req.Timestamp,
		}, nil
	case TypeModifyOrder:
		var req ModifyOrderRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return nil, err
		}
		return domain.ModifyOrderRequest{
			OrderID:  req.OrderID,
			TraderID: orDefault(req.TraderID, sessionTrader),
			Quantity: req.Quantity,
			Price:    req.Price,
		}, nil
	case TypeCancelOrder:
		var req CancelOrderRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return nil, err
		}
		return domain.CancelOrderRequest{
			OrderID:  req.OrderID,
			TraderID: orDefault(req.TraderID, sessionTrader),
		}, nil
	case TypeSubscribe:
		var req SubscribeRequest
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				return nil, err
			}
		}
		return domain.SubscribeRequest{
			TraderID: orDefault(req.TraderID, sessionTrader),
		}, nil
	default:
		return nil, fmt.Errorf("dto: unknown request type %q", msg.Type)
	}
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

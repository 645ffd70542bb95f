package dto

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olyamironova/matching-engine/internal/domain"
)

func TestDecodeRequestDefaultsTraderID(t *testing.T) {
	msg := Message{
		Type: TypeNewOrder,
		Data: json.RawMessage(`{"side":"BID","instrument":"GOLD","quantity":2,"price":"5"}`),
	}
	req, err := DecodeRequest(msg, "alice")
	require.NoError(t, err)

	order, ok := req.(domain.NewOrderRequest)
	require.True(t, ok)
	assert.Equal(t, "alice", order.TraderID)
	assert.Equal(t, domain.Bid, order.Side)
	assert.Equal(t, domain.Instrument("GOLD"), order.Instrument)
	assert.True(t, order.Price.Equal(decimal.RequireFromString("5")))
}

func TestDecodeRequestExplicitTraderWins(t *testing.T) {
	msg := Message{
		Type: TypeCancelOrder,
		Data: json.RawMessage(`{"trader_id":"bob","order_id":7}`),
	}
	req, err := DecodeRequest(msg, "alice")
	require.NoError(t, err)

	cancel, ok := req.(domain.CancelOrderRequest)
	require.True(t, ok)
	assert.Equal(t, "bob", cancel.TraderID)
	assert.Equal(t, uint64(7), cancel.OrderID)
}

func TestDecodeRequestSubscribeWithoutPayload(t *testing.T) {
	req, err := DecodeRequest(Message{Type: TypeSubscribe}, "alice")
	require.NoError(t, err)
	sub, ok := req.(domain.SubscribeRequest)
	require.True(t, ok)
	assert.Equal(t, "alice", sub.TraderID)
}

func TestDecodeRequestUnknownType(t *testing.T) {
	_, err := DecodeRequest(Message{Type: "settle_batch"}, "alice")
	assert.Error(t, err)
}

// zero quantity and zero order id must survive binding so the engine can
// answer with its own rejection report instead of a transport-level 400
func TestBindingAllowsZeroNumericFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	bind := func(body string, out any) error {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		return c.ShouldBindJSON(out)
	}

	var newOrder NewOrderRequest
	require.NoError(t, bind(`{"side":"BID","instrument":"GOLD","quantity":0,"price":"5"}`, &newOrder))
	assert.Equal(t, int64(0), newOrder.Quantity)

	var modify ModifyOrderRequest
	require.NoError(t, bind(`{"order_id":0,"quantity":2,"price":"5"}`, &modify))
	assert.Equal(t, uint64(0), modify.OrderID)

	var cancel CancelOrderRequest
	require.NoError(t, bind(`{"order_id":0}`, &cancel))
	assert.Equal(t, uint64(0), cancel.OrderID)

	// a missing side is still a binding error
	var missingSide NewOrderRequest
	assert.Error(t, bind(`{"instrument":"GOLD","quantity":2,"price":"5"}`, &missingSide))
}

func TestEncodeEventFraming(t *testing.T) {
	rep := domain.ExecutionReport{
		OrderID:    3,
		TraderID:   "alice",
		Side:       domain.Bid,
		Instrument: "GOLD",
		Quantity:   2,
		Price:      decimal.RequireFromString("5"),
		Status:     domain.Active,
		ExecType:   domain.ExecAdd,
	}
	msg, err := EncodeEvent(rep)
	require.NoError(t, err)
	assert.Equal(t, TypeExecutionReport, msg.Type)

	var decoded ExecutionReport
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, uint64(3), decoded.OrderID)
	assert.Equal(t, string(domain.ExecAdd), decoded.ExecType)

	msg, err = EncodeEvent(domain.BatchComplete{})
	require.NoError(t, err)
	assert.Equal(t, TypeBatchComplete, msg.Type)
	assert.Empty(t, msg.Data)
}

package core

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/olyamironova/matching-engine/internal/domain"
)

// fakeReceiver records delivered events; closing done simulates the
// trader's handle becoming unreachable.
type fakeReceiver struct {
	id   string
	done chan struct{}

	mu     sync.Mutex
	events []domain.Event
}

func newFakeReceiver(id string) *fakeReceiver {
	return &fakeReceiver{id: id, done: make(chan struct{})}
}

func (r *fakeReceiver) SessionID() string { return r.id }

func (r *fakeReceiver) Done() <-chan struct{} { return r.done }

func (r *fakeReceiver) Deliver(ev domain.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *fakeReceiver) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

func (r *fakeReceiver) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func newTestEngine() *Engine {
	return NewEngine(zap.NewNop(), nil, nil)
}

// send runs one request through the engine synchronously.
func send(e *Engine, req domain.Request, from *fakeReceiver) {
	e.dispatch(envelope{req: req, from: from})
}

// sendWait also collects the direct reply.
func sendWait(e *Engine, req domain.Request, from *fakeReceiver) domain.Event {
	reply := make(chan domain.Event, 1)
	e.dispatch(envelope{req: req, from: from, reply: reply})
	select {
	case ev := <-reply:
		return ev
	default:
		return nil
	}
}

// drainOne processes the next queued inbox message, e.g. a termination
// notice produced by a liveness watcher.
func drainOne(e *Engine) {
	select {
	case m := <-e.inbox:
		e.dispatch(m)
	case <-time.After(time.Second):
		panic("no inbox message within a second")
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newOrder(trader string, side domain.Side, instrument domain.Instrument, qty int64, price string) domain.NewOrderRequest {
	return domain.NewOrderRequest{
		TraderID:   trader,
		Side:       side,
		Instrument: instrument,
		Quantity:   qty,
		Price:      dec(price),
	}
}

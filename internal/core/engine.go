package core

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/olyamironova/matching-engine/internal/domain"
	"github.com/olyamironova/matching-engine/internal/port"
)

var ErrUnknownInstrument = errors.New("unknown instrument")

// envelope pairs a request with the handle it arrived on. The handle is
// the authorization capability for the trader id inside the request; the
// optional reply channel receives the direct execution report so callers
// with a synchronous surface (HTTP) can return it.
type envelope struct {
	req   domain.Request
	from  port.Receiver
	reply chan domain.Event
}

func (env envelope) replyWith(ev domain.Event) {
	if env.reply == nil {
		return
	}
	select {
	case env.reply <- ev:
	default:
	}
}

type bookQuery struct {
	instrument domain.Instrument
	reply      chan *domain.BookSnapshot
}

// traderDown enters the inbox when a watched handle becomes unreachable,
// so termination is serialized like any other request.
type traderDown struct {
	sessionID string
}

// Engine owns all order books, the order-id allocator, both trader
// registries and the report history. It processes exactly one inbox
// message at a time, which makes each validate-mutate-match-notify
// sequence atomic without locks.
type Engine struct {
	log     *zap.Logger
	journal port.Journal
	cache   port.Cache

	inbox chan any
	ctx   context.Context

	subscribers    map[string]port.Receiver
	nonSubscribers map[string]port.Receiver
	watches        map[string]chan struct{}

	orders  map[uint64]*domain.Order
	books   map[domain.Instrument]*OrderBook
	history *ReportLog

	lastOrderID uint64
	now         func() time.Time
}

// NewEngine wires the engine; journal and cache may be nil.
func NewEngine(log *zap.Logger, journal port.Journal, cache port.Cache) *Engine {
	return &Engine{
		log:            log,
		journal:        journal,
		cache:          cache,
		inbox:          make(chan any, 1024),
		subscribers:    make(map[string]port.Receiver),
		nonSubscribers: make(map[string]port.Receiver),
		watches:        make(map[string]chan struct{}),
		orders:         make(map[uint64]*domain.Order),
		books:          make(map[domain.Instrument]*OrderBook),
		history:        NewReportLog(),
		now:            time.Now,
	}
}

// Run consumes the inbox until ctx is done. It is the only goroutine
// that touches books, registries and history.
func (e *Engine) Run(ctx context.Context) {
	e.ctx = ctx
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-e.inbox:
			e.dispatch(m)
		}
	}
}

// Enqueue submits a request without waiting for the direct report.
func (e *Engine) Enqueue(req domain.Request, from port.Receiver) {
	e.inbox <- envelope{req: req, from: from}
}

// Call submits a request and waits for the direct execution report
// (accepted or rejected). Asynchronous effects still flow through from.
func (e *Engine) Call(ctx context.Context, req domain.Request, from port.Receiver) (domain.Event, error) {
	reply := make(chan domain.Event, 1)
	select {
	case e.inbox <- envelope{req: req, from: from, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case ev := <-reply:
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Book returns a point-in-time copy of one instrument's book, serialized
// through the inbox like every other read of engine state.
func (e *Engine) Book(ctx context.Context, instrument domain.Instrument) (*domain.BookSnapshot, error) {
	reply := make(chan *domain.BookSnapshot, 1)
	select {
	case e.inbox <- bookQuery{instrument: instrument, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case snap := <-reply:
		if snap == nil {
			return nil, ErrUnknownInstrument
		}
		return snap, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) dispatch(m any) {
	switch m := m.(type) {
	case envelope:
		switch req := m.req.(type) {
		case domain.NewOrderRequest:
			e.onNewOrder(req, m)
		case domain.ModifyOrderRequest:
			e.onModifyOrder(req, m)
		case domain.CancelOrderRequest:
			e.onCancelOrder(req, m)
		case domain.SubscribeRequest:
			e.onSubscribe(req, m)
		}
	case traderDown:
		e.onTraderDown(m)
	case bookQuery:
		if book, ok := e.books[m.instrument]; ok {
			m.reply <- book.Snapshot()
		} else {
			m.reply <- nil
		}
	}
}

func (e *Engine) onNewOrder(req domain.NewOrderRequest, env envelope) {
	e.log.Info("received new order request",
		zap.String("trader", req.TraderID),
		zap.String("instrument", string(req.Instrument)),
		zap.String("side", string(req.Side)))

	if reason := newOrderRejection(req); reason != "" {
		e.rejectNewOrder(req, env, reason)
		return
	}

	if _, ok := e.subscribers[req.TraderID]; !ok {
		if _, ok := e.nonSubscribers[req.TraderID]; !ok {
			e.nonSubscribers[req.TraderID] = env.from
			e.watch(req.TraderID, env.from)
		}
	}

	ts := req.Timestamp
	if ts.IsZero() {
		ts = e.now()
	}
	e.lastOrderID++
	o := &domain.Order{
		OrderID:    e.lastOrderID,
		TraderID:   req.TraderID,
		Side:       req.Side,
		Instrument: req.Instrument,
		Quantity:   req.Quantity,
		Price:      req.Price,
		Status:     domain.Active,
		Timestamp:  ts,
	}
	e.orders[o.OrderID] = o
	book := e.bookFor(req.Instrument)
	book.Insert(o)

	rep := domain.NewReport(o, domain.ExecAdd)
	e.record(rep)
	e.log.Info("distributing execution report",
		zap.Uint64("order_id", rep.OrderID),
		zap.String("exec_type", string(rep.ExecType)),
		zap.Int("subscribers", len(e.subscribers)))

	b := newBatch()
	if r, ok := e.nonSubscribers[req.TraderID]; ok {
		b.note(r)
		r.Deliver(rep)
	}
	env.replyWith(rep)
	e.journalOrder(o)

	e.match(book, b)
	e.closeBatch(b)
	e.refreshCache(book)
}

func newOrderRejection(req domain.NewOrderRequest) domain.RejectionReason {
	if req.Price.Sign() <= 0 {
		return domain.InvalidPrice
	}
	if req.Quantity <= 0 {
		return domain.InvalidQuantity
	}
	return ""
}

func (e *Engine) rejectNewOrder(req domain.NewOrderRequest, env envelope, reason domain.RejectionReason) {
	e.log.Info("new order request rejected", zap.String("reason", string(reason)))
	rep := domain.ExecutionReport{
		TraderID:        req.TraderID,
		Side:            req.Side,
		Instrument:      req.Instrument,
		Quantity:        req.Quantity,
		Price:           req.Price,
		Status:          domain.Rejected,
		ExecType:        domain.ExecRejected,
		RejectionReason: reason,
		Timestamp:       e.now(),
	}
	e.tellRequester(env, rep)
}

func (e *Engine) onModifyOrder(req domain.ModifyOrderRequest, env envelope) {
	e.log.Info("received modify order request",
		zap.Uint64("order_id", req.OrderID),
		zap.String("trader", req.TraderID))

	if reason := e.modifyRejection(req, env.from); reason != "" {
		e.log.Info("modify order request rejected", zap.String("reason", string(reason)))
		e.tellRequester(env, rejectedReport(req.TraderID, req.Quantity, req.Price, reason, e.now()))
		return
	}

	o := e.orders[req.OrderID]
	book := e.books[o.Instrument]
	book.Modify(req.OrderID, req.Price, req.Quantity)

	rep := domain.NewReport(o, domain.ExecUpdate)
	e.record(rep)
	e.log.Info("distributing execution report",
		zap.Uint64("order_id", rep.OrderID),
		zap.String("exec_type", string(rep.ExecType)),
		zap.Int("subscribers", len(e.subscribers)))

	b := newBatch()
	if r, ok := e.nonSubscribers[req.TraderID]; ok {
		b.note(r)
		r.Deliver(rep)
	}
	env.replyWith(rep)
	e.journalOrder(o)

	e.match(book, b)
	e.closeBatch(b)
	e.refreshCache(book)
}

func (e *Engine) modifyRejection(req domain.ModifyOrderRequest, from port.Receiver) domain.RejectionReason {
	if reason := e.identityRejection(req.TraderID, req.OrderID, from); reason != "" {
		return reason
	}
	if req.Price.Sign() <= 0 {
		return domain.InvalidPrice
	}
	if req.Quantity <= 0 {
		return domain.InvalidQuantity
	}
	return ""
}

// identityRejection is the shared trader-identity and order-ownership
// check for modify and cancel. The registered handle must match the one
// the request arrived on: the numeric id alone authorizes nothing.
func (e *Engine) identityRejection(traderID string, orderID uint64, from port.Receiver) domain.RejectionReason {
	sub, isSub := e.subscribers[traderID]
	nonSub, isNonSub := e.nonSubscribers[traderID]
	if !isSub && !isNonSub {
		return domain.InvalidTraderID
	}
	if from == nil {
		return domain.InvalidTraderID
	}
	if isSub && sub.SessionID() != from.SessionID() {
		return domain.InvalidTraderID
	}
	if isNonSub && nonSub.SessionID() != from.SessionID() {
		return domain.InvalidTraderID
	}
	o, ok := e.orders[orderID]
	if !ok || o.TraderID != traderID {
		return domain.InvalidOrderID
	}
	return ""
}

func (e *Engine) onCancelOrder(req domain.CancelOrderRequest, env envelope) {
	e.log.Info("received cancel order request",
		zap.Uint64("order_id", req.OrderID),
		zap.String("trader", req.TraderID))

	if reason := e.identityRejection(req.TraderID, req.OrderID, env.from); reason != "" {
		e.log.Info("cancel order request rejected", zap.String("reason", string(reason)))
		e.tellRequester(env, rejectedReport(req.TraderID, 0, decimalZero, reason, e.now()))
		return
	}

	o := e.orders[req.OrderID]
	book := e.books[o.Instrument]
	book.Cancel(req.OrderID)
	delete(e.orders, req.OrderID)

	rep := domain.NewReport(o, domain.ExecRemove)
	e.record(rep)
	e.log.Info("distributing execution report",
		zap.Uint64("order_id", rep.OrderID),
		zap.String("exec_type", string(rep.ExecType)),
		zap.Int("subscribers", len(e.subscribers)))

	b := newBatch()
	if r, ok := e.nonSubscribers[req.TraderID]; ok {
		b.note(r)
		r.Deliver(rep)
	}
	env.replyWith(rep)
	e.journalOrder(o)

	// cancellation cannot create a new cross, so no matching pass
	e.closeBatch(b)
	if _, ok := e.nonSubscribers[req.TraderID]; ok {
		e.tryReleaseTrader(req.TraderID)
	}
	e.refreshCache(book)
}

func (e *Engine) onSubscribe(req domain.SubscribeRequest, env envelope) {
	e.log.Info("subscription request received",
		zap.String("trader", req.TraderID),
		zap.String("session", env.from.SessionID()))

	e.unwatch(req.TraderID)
	e.subscribers[req.TraderID] = env.from
	delete(e.nonSubscribers, req.TraderID)
	e.watch(req.TraderID, env.from)

	for _, ev := range e.history.Snapshot() {
		env.from.Deliver(ev)
	}
	ack := domain.SubscriptionAck{}
	env.from.Deliver(ack)
	env.replyWith(ack)
}

// onTraderDown cancels every open order of the terminated trader. The
// reports and markers go into history and to the remaining subscribers;
// nothing is delivered point-to-point to the dead handle.
func (e *Engine) onTraderDown(d traderDown) {
	traderID, ok := e.traderBySession(d.sessionID)
	if !ok {
		return
	}
	e.log.Info("trader terminated", zap.String("trader", traderID))

	e.unwatch(traderID)
	delete(e.subscribers, traderID)
	delete(e.nonSubscribers, traderID)

	var owned []*domain.Order
	for _, o := range e.orders {
		if o.TraderID == traderID {
			owned = append(owned, o)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].OrderID < owned[j].OrderID })

	for _, o := range owned {
		book := e.books[o.Instrument]
		book.Cancel(o.OrderID)
		delete(e.orders, o.OrderID)
		e.record(domain.NewReport(o, domain.ExecRemove))
		e.record(domain.BatchComplete{})
		e.journalOrder(o)
		e.refreshCache(book)
	}
}

func (e *Engine) traderBySession(sessionID string) (string, bool) {
	for traderID, r := range e.subscribers {
		if r.SessionID() == sessionID {
			return traderID, true
		}
	}
	for traderID, r := range e.nonSubscribers {
		if r.SessionID() == sessionID {
			return traderID, true
		}
	}
	return "", false
}

// tryReleaseTrader deregisters a non-subscriber that owns no open orders
// anywhere, so the engine does not track idle traders forever.
func (e *Engine) tryReleaseTrader(traderID string) {
	for _, o := range e.orders {
		if o.TraderID == traderID {
			return
		}
	}
	e.unwatch(traderID)
	delete(e.nonSubscribers, traderID)
}

// watch subscribes to the handle's liveness. Termination re-enters the
// engine through the inbox, so it is ordered like any other message.
func (e *Engine) watch(traderID string, r port.Receiver) {
	if r == nil {
		return
	}
	if _, ok := e.watches[traderID]; ok {
		return
	}
	stop := make(chan struct{})
	e.watches[traderID] = stop
	go func() {
		select {
		case <-stop:
			return
		case <-r.Done():
		}
		// a stop racing the handle's death must win, or a stale
		// termination for an already-released trader enters the inbox
		select {
		case <-stop:
		default:
			e.inbox <- traderDown{sessionID: r.SessionID()}
		}
	}()
}

func (e *Engine) unwatch(traderID string) {
	if stop, ok := e.watches[traderID]; ok {
		close(stop)
		delete(e.watches, traderID)
	}
}

// record appends to history and broadcasts to all subscribers; the two
// always happen together so replay order equals broadcast order.
func (e *Engine) record(ev domain.Event) {
	e.history.Append(ev)
	for _, r := range e.subscribers {
		r.Deliver(ev)
	}
}

func (e *Engine) tellRequester(env envelope, rep domain.ExecutionReport) {
	if env.from != nil {
		env.from.Deliver(rep)
	}
	env.replyWith(rep)
}

func (e *Engine) bookFor(instrument domain.Instrument) *OrderBook {
	book, ok := e.books[instrument]
	if !ok {
		book = NewOrderBook(instrument)
		e.books[instrument] = book
	}
	return book
}

func (e *Engine) journalOrder(o *domain.Order) {
	if e.journal != nil {
		_ = e.journal.SaveOrder(e.runCtx(), o)
	}
}

func (e *Engine) journalTrade(t *domain.TradeMessage) {
	if e.journal != nil {
		_ = e.journal.SaveTrade(e.runCtx(), t)
	}
}

func (e *Engine) refreshCache(book *OrderBook) {
	if e.cache == nil {
		return
	}
	if book.Len() == 0 {
		_ = e.cache.Invalidate(e.runCtx(), book.Instrument)
		return
	}
	_ = e.cache.SetBook(e.runCtx(), book.Instrument, book.Snapshot())
}

func (e *Engine) runCtx() context.Context {
	if e.ctx != nil {
		return e.ctx
	}
	return context.Background()
}

package client

import (
	"sync"

	"github.com/olyamironova/matching-engine/internal/core"
	"github.com/olyamironova/matching-engine/internal/domain"
)

// Mirror is a trader-side reconstruction of the engine's books, built
// purely from received execution reports. Reports are buffered and only
// applied when a batch-complete marker arrives: a batch may touch several
// orders, and applying it halfway would expose a crossed or inconsistent
// local view. History replay on subscribe ends with a SubscriptionAck,
// which flushes the same way.
type Mirror struct {
	mu       sync.Mutex
	traderID string
	books    map[domain.Instrument]*core.OrderBook
	myOrders map[uint64]*domain.Order
	pending  []domain.ExecutionReport
	trades   []domain.TradeMessage
}

func NewMirror(traderID string) *Mirror {
	return &Mirror{
		traderID: traderID,
		books:    make(map[domain.Instrument]*core.OrderBook),
		myOrders: make(map[uint64]*domain.Order),
	}
}

// Apply consumes one event from the engine's stream.
func (m *Mirror) Apply(ev domain.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch ev := ev.(type) {
	case domain.ExecutionReport:
		if ev.Status == domain.Rejected {
			return
		}
		m.pending = append(m.pending, ev)
	case domain.TradeMessage:
		m.trades = append(m.trades, ev)
	case domain.BatchComplete, domain.SubscriptionAck:
		m.flush()
	}
}

func (m *Mirror) flush() {
	for i := range m.pending {
		m.applyReport(m.pending[i])
	}
	m.pending = m.pending[:0]
}

func (m *Mirror) applyReport(rep domain.ExecutionReport) {
	book := m.bookFor(rep.Instrument)
	switch rep.ExecType {
	case domain.ExecAdd:
		o := orderFromReport(rep)
		book.Insert(o)
		if o.TraderID == m.traderID {
			m.myOrders[o.OrderID] = o
		}
	case domain.ExecUpdate:
		// reinsert with the report's values so status and timestamp come
		// from the engine, not from local clocks
		book.Remove(rep.OrderID)
		o := orderFromReport(rep)
		book.Insert(o)
		if o.TraderID == m.traderID {
			m.myOrders[o.OrderID] = o
		}
	case domain.ExecRemove:
		book.Remove(rep.OrderID)
		delete(m.myOrders, rep.OrderID)
	}
}

func orderFromReport(rep domain.ExecutionReport) *domain.Order {
	return &domain.Order{
		OrderID:    rep.OrderID,
		TraderID:   rep.TraderID,
		Side:       rep.Side,
		Instrument: rep.Instrument,
		Quantity:   rep.Quantity,
		Price:      rep.Price,
		Status:     rep.Status,
		Timestamp:  rep.Timestamp,
	}
}

func (m *Mirror) bookFor(instrument domain.Instrument) *core.OrderBook {
	book, ok := m.books[instrument]
	if !ok {
		book = core.NewOrderBook(instrument)
		m.books[instrument] = book
	}
	return book
}

// Book returns the mirrored view of one instrument, or nil if no report
// has mentioned it yet.
func (m *Mirror) Book(instrument domain.Instrument) *domain.BookSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	book, ok := m.books[instrument]
	if !ok {
		return nil
	}
	return book.Snapshot()
}

// OpenOrders lists this trader's own live orders across all instruments.
func (m *Mirror) OpenOrders() []domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]domain.Order, 0, len(m.myOrders))
	for _, o := range m.myOrders {
		res = append(res, *o)
	}
	return res
}

// Trades returns every trade message seen so far.
func (m *Mirror) Trades() []domain.TradeMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TradeMessage(nil), m.trades...)
}

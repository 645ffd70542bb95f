package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/olyamironova/matching-engine/internal/api/dto"
	"github.com/olyamironova/matching-engine/internal/domain"
	"github.com/olyamironova/matching-engine/internal/port"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

// Engine is the slice of the matching engine the transport needs.
type Engine interface {
	Enqueue(req domain.Request, from port.Receiver)
}

var _ port.Receiver = (*Session)(nil)

// Session is one trader connection. It is the trader's communication
// handle: the uuid token is the capability the engine compares on modify
// and cancel, delivery goes through a bounded outbound queue, and the
// done channel closing is the liveness signal the engine watches.
type Session struct {
	token    string
	traderID string
	conn     *websocket.Conn
	engine   Engine
	log      *zap.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newSession(token, traderID string, conn *websocket.Conn, engine Engine, log *zap.Logger) *Session {
	return &Session{
		token:    token,
		traderID: traderID,
		conn:     conn,
		engine:   engine,
		log:      log,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
}

func (s *Session) SessionID() string { return s.token }

func (s *Session) TraderID() string { return s.traderID }

func (s *Session) Done() <-chan struct{} { return s.done }

// Deliver queues one event for the write pump. It never blocks the
// engine: a peer that cannot drain its queue loses the connection, and
// the engine learns about it through the liveness path.
func (s *Session) Deliver(ev domain.Event) {
	msg, err := dto.EncodeEvent(ev)
	if err != nil {
		s.log.Error("encode event", zap.Error(err))
		return
	}
	b, err := json.Marshal(msg)
	if err != nil {
		s.log.Error("marshal event", zap.Error(err))
		return
	}
	select {
	case s.send <- b:
	case <-s.done:
	default:
		s.log.Warn("session send buffer full, dropping connection",
			zap.String("session", s.token),
			zap.String("trader", s.traderID))
		s.close()
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// readPump feeds request frames into the engine's inbox in arrival
// order, which is the per-sender ordering guarantee.
func (s *Session) readPump() {
	defer s.close()

	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Info("session read error", zap.String("session", s.token), zap.Error(err))
			}
			return
		}
		var msg dto.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.log.Warn("invalid frame", zap.String("session", s.token), zap.Error(err))
			continue
		}
		req, err := dto.DecodeRequest(msg, s.traderID)
		if err != nil {
			s.log.Warn("invalid request", zap.String("session", s.token), zap.Error(err))
			continue
		}
		s.engine.Enqueue(req, s)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case <-s.done:
			return
		case b := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

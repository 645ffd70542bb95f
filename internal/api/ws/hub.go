package ws

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub tracks live sessions by token so the HTTP order-entry endpoints
// can resolve X-Session-Token to the registered handle.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	engine   Engine
	log      *zap.Logger
}

func NewHub(engine Engine, log *zap.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		engine:   engine,
		log:      log,
	}
}

// Handle upgrades the request to a websocket and starts the session.
// The trader_id query parameter names the trader this handle speaks for.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	traderID := r.URL.Query().Get("trader_id")
	if traderID == "" {
		http.Error(w, "trader_id query parameter required", http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade", zap.Error(err))
		return
	}

	s := newSession(uuid.NewString(), traderID, conn, h.engine, h.log)
	h.mu.Lock()
	h.sessions[s.token] = s
	h.mu.Unlock()
	h.log.Info("session opened",
		zap.String("session", s.token),
		zap.String("trader", traderID),
		zap.Int("total", h.Count()))

	// tell the peer its session token before any engine traffic
	if err := conn.WriteJSON(map[string]string{"session_token": s.token}); err != nil {
		s.close()
		h.remove(s.token)
		return
	}

	go s.writePump()
	go s.readPump()
	go func() {
		<-s.done
		h.remove(s.token)
	}()
}

func (h *Hub) Session(token string) (*Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[token]
	return s, ok
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) remove(token string) {
	h.mu.Lock()
	if _, ok := h.sessions[token]; ok {
		delete(h.sessions, token)
		h.log.Info("session closed", zap.String("session", token), zap.Int("total", len(h.sessions)))
	}
	h.mu.Unlock()
}

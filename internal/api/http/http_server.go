package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/olyamironova/matching-engine/internal/api/dto"
	"github.com/olyamironova/matching-engine/internal/api/ws"
	"github.com/olyamironova/matching-engine/internal/core"
	"github.com/olyamironova/matching-engine/internal/domain"
	"github.com/olyamironova/matching-engine/internal/middleware"
	"github.com/olyamironova/matching-engine/internal/port"
)

// HTTPServer exposes order entry over REST next to the websocket stream.
// A trader must hold an open websocket session; its token authorizes the
// REST requests and the asynchronous effects arrive on the stream. The
// POST response body is the direct execution report.
type HTTPServer struct {
	Eng   *core.Engine
	Hub   *ws.Hub
	Cache port.Cache
	Log   *zap.Logger
}

func NewHTTPServer(eng *core.Engine, hub *ws.Hub, cache port.Cache, log *zap.Logger) *HTTPServer {
	return &HTTPServer{Eng: eng, Hub: hub, Cache: cache, Log: log}
}

func (s *HTTPServer) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *HTTPServer) Router() *gin.Engine {
	r := gin.Default()

	rl := middleware.NewRateLimiter(time.Millisecond * 100)

	orders := r.Group("/orders", rl.Middleware())
	orders.POST("", s.newOrder)
	orders.POST("/modify", s.modifyOrder)
	orders.POST("/cancel", s.cancelOrder)

	r.GET("/orderbook", s.getOrderbook)
	r.GET("/ws", gin.WrapF(s.Hub.Handle))

	return r
}

// traderID prefers the X-Trader-ID header, falling back to the trader
// the session was opened for.
func traderID(c *gin.Context, sess *ws.Session) string {
	if id := c.GetHeader("X-Trader-ID"); id != "" {
		return id
	}
	return sess.TraderID()
}

// session resolves the X-Session-Token header to the caller's handle.
func (s *HTTPServer) session(c *gin.Context) (*ws.Session, bool) {
	token := c.GetHeader("X-Session-Token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "X-Session-Token header required"})
		return nil, false
	}
	sess, ok := s.Hub.Session(token)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown session"})
		return nil, false
	}
	return sess, true
}

func (s *HTTPServer) newOrder(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req dto.NewOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.call(c, domain.NewOrderRequest{
		TraderID:   traderID(c, sess),
		Side:       domain.Side(req.Side),
		Instrument: domain.Instrument(req.Instrument),
		Quantity:   req.Quantity,
		Price:      req.Price,
		Timestamp:  req.Timestamp,
	}, sess)
}

func (s *HTTPServer) modifyOrder(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req dto.ModifyOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.call(c, domain.ModifyOrderRequest{
		OrderID:  req.OrderID,
		TraderID: traderID(c, sess),
		Quantity: req.Quantity,
		Price:    req.Price,
	}, sess)
}

func (s *HTTPServer) cancelOrder(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req dto.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.call(c, domain.CancelOrderRequest{
		OrderID:  req.OrderID,
		TraderID: traderID(c, sess),
	}, sess)
}

func (s *HTTPServer) call(c *gin.Context, req domain.Request, sess *ws.Session) {
	ev, err := s.Eng.Call(c.Request.Context(), req, sess)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	rep, ok := ev.(domain.ExecutionReport)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected engine response"})
		return
	}
	c.JSON(http.StatusOK, dto.FromReport(rep))
}

func (s *HTTPServer) getOrderbook(c *gin.Context) {
	instrument := domain.Instrument(c.Query("instrument"))
	if instrument == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "instrument query parameter required"})
		return
	}
	if s.Cache != nil {
		if snap, err := s.Cache.GetBook(c.Request.Context(), instrument); err == nil && snap != nil {
			c.JSON(http.StatusOK, dto.FromSnapshot(snap))
			return
		}
	}
	snap, err := s.Eng.Book(c.Request.Context(), instrument)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.FromSnapshot(snap))
}

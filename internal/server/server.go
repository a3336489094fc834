// Package server exposes the status board, recent alerts and metrics over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"DivergenceSentinel/internal/logger"
	"DivergenceSentinel/internal/model"
)

// Board is the read side of the scheduler's status board.
type Board interface {
	Statuses() []model.InstrumentStatus
	Status(key string) (model.InstrumentStatus, bool)
	Recent(n int) []model.AlertEvent
}

// Server is a small read-only gin API.
type Server struct {
	addr    string
	board   Board
	metrics http.Handler
	router  *gin.Engine
	started time.Time
}

// New builds the router. metrics may be nil to skip /metrics.
func New(addr string, board Board, metrics http.Handler) *Server {
	if addr == "" {
		addr = ":8080"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{addr: addr, board: board, metrics: metrics, router: router, started: time.Now()}
	s.registerRoutes()
	return s
}

// Handler returns the underlying router.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/status", s.handleStatuses)
	s.router.GET("/status/:key", s.handleStatus)
	s.router.GET("/alerts", s.handleAlerts)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "uptime": time.Since(s.started).Round(time.Second).String()})
}

func (s *Server) handleStatuses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"instruments": s.board.Statuses()})
}

// handleStatus looks up one instrument by key, e.g. XRPUSDT@5m.
func (s *Server) handleStatus(c *gin.Context) {
	st, ok := s.board.Status(c.Param("key"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "instrument not monitored"})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handleAlerts(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, gin.H{"alerts": s.board.Recent(limit)})
}

// Run serves until ctx is cancelled, then shuts down gracefully. A listen
// failure is logged and Run returns nil so it never cancels its group.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("status server listening on %s", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			logger.Warn("status server shutdown: %v", err)
		}
		return nil
	case err := <-errCh:
		if err != nil {
			logger.Error("status server on %s stopped: %v", s.addr, err)
		}
		return nil
	}
}

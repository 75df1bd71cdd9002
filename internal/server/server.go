// Package server exposes the chart engine over HTTP and a websocket stream.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"ammclob/config"
	"ammclob/internal/derive"
	"ammclob/internal/market"
	"ammclob/internal/present"
	"ammclob/internal/refresh"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Chart is the refresh controller as seen by the boundary.
type Chart interface {
	Select(pair market.Pair, interval market.Interval) (uint64, error)
	Reload() (uint64, bool)
	SetView(v derive.View) error
	View() derive.View
	Status() refresh.Status
	Frame() (present.Frame, error)
	Subscribe(fn func(refresh.Status)) (cancel func())
}

// Pools is the pool directory as seen by the boundary.
type Pools interface {
	All() []market.Pool
	Get(index int) (market.Pool, bool)
	Find(pair market.Pair) (market.Pool, bool)
	Loads() int
}

type Server struct {
	cfg             config.ServerConfig
	chart           Chart
	pools           Pools
	defaultInterval market.Interval
	hub             *Hub
	logger          *zap.Logger
	httpServer      *http.Server
}

func New(cfg config.ServerConfig, chart Chart, pools Pools, defaultInterval market.Interval, logger *zap.Logger) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	s := &Server{
		cfg:             cfg,
		chart:           chart,
		pools:           pools,
		defaultInterval: defaultInterval,
		logger:          logger,
	}
	s.hub = NewHub(chart, s, logger.Named("ws"))
	return s
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	api := router.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/pools", s.handlePools)
	api.GET("/intervals", s.handleIntervals)
	api.GET("/status", s.handleStatus)
	api.POST("/selection", s.handleSelection)
	api.PUT("/view", s.handleView)
	api.POST("/reload", s.handleReload)
	api.GET("/frame", s.handleFrame)

	router.GET("/ws", s.hub.Serve)

	return router
}

// Run starts the hub and the HTTP server and blocks until ctx is cancelled or
// the server exits with an error.
func (s *Server) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	s.httpServer = &http.Server{
		Addr:    s.cfg.Address,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("address", s.cfg.Address))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		s.hub.CloseAll()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		s.logger.Info("http server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

package admin

import (
	"net/http"
	"time"

	"detection-api/broker"
	"detection-api/internal/server/middleware"
	"detection-api/logging"
	"detection-api/miner"
	"detection-api/predictioncache"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsProvider exposes the miner's request counters to the admin surface.
type StatsProvider interface {
	Stats() miner.StatsSnapshot
}

// Server is the operator-facing surface of a daemon. Collaborators vary by
// daemon; routes are registered only for the ones provided.
type Server struct {
	e         *echo.Echo
	b         *broker.Broker
	store     predictioncache.Store
	stats     StatsProvider
	startTime time.Time
}

func NewServer(b *broker.Broker, store predictioncache.Store, stats StatsProvider) *Server {
	e := echo.New()
	s := &Server{
		e:         e,
		b:         b,
		store:     store,
		stats:     stats,
		startTime: time.Now(),
	}

	e.Use(middleware.LoggingMiddleware)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	g := e.Group("/admin/v1/")
	g.GET("status", s.getStatus)
	if store != nil {
		g.GET("cache/:fingerprint", s.getCachedPrediction)
	}
	if stats != nil {
		g.GET("stats", s.getStats)
	}

	return s
}

func (s *Server) Start(addr string) {
	go func() {
		if err := s.e.Start(addr); err != nil && err != http.ErrServerClosed {
			logging.Error("Admin server stopped", logging.Server, "error", err)
		}
	}()
}

// Package challenge adapts the miner handler to HTTP for dev and test
// networks. The authenticated platform transport fills this role in
// production; the route shapes mirror its request/response objects.
package challenge

import (
	"net/http"

	"detection-api/internal/server/middleware"
	"detection-api/logging"
	"detection-api/miner"

	"github.com/labstack/echo/v4"
)

type Server struct {
	e       *echo.Echo
	handler *miner.Handler
}

func NewServer(handler *miner.Handler) *Server {
	e := echo.New()
	s := &Server{
		e:       e,
		handler: handler,
	}

	e.Use(middleware.LoggingMiddleware)
	g := e.Group("/v1/")

	g.POST("challenges", s.postChallenge)
	g.GET("stats", s.getStats)

	return s
}

func (s *Server) Start(addr string) {
	go func() {
		if err := s.e.Start(addr); err != nil && err != http.ErrServerClosed {
			logging.Error("Challenge server stopped", logging.Server, "error", err)
		}
	}()
}

package public

import (
	"net/http"

	"detection-api/broker"
	"detection-api/internal/server/middleware"
	"detection-api/logging"
	"detection-api/modelclient"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

// Server is the public surface of the GPU server. It accepts prediction
// requests and funnels them into the broker.
type Server struct {
	e          *echo.Echo
	broker     *broker.Broker
	classifier modelclient.Classifier
}

func NewServer(b *broker.Broker, classifier modelclient.Classifier, bodyLimit string) *Server {
	e := echo.New()
	s := &Server{
		e:          e,
		broker:     b,
		classifier: classifier,
	}

	e.Use(middleware.LoggingMiddleware)
	e.Use(echomiddleware.BodyLimit(bodyLimit))

	e.POST("/predict", s.postPredict)

	g := e.Group("/v1/")
	g.GET("status", s.getStatus)

	return s
}

func (s *Server) Start(addr string) {
	go func() {
		if err := s.e.Start(addr); err != nil && err != http.ErrServerClosed {
			logging.Error("Public server stopped", logging.Server, "error", err)
		}
	}()
}

type statusResponse struct {
	Status       string `json:"status"`
	ModelHealthy bool   `json:"model_healthy"`
	QueueDepth   int    `json:"queue_depth"`
}

func (s *Server) getStatus(ctx echo.Context) error {
	healthy, err := s.classifier.Health(ctx.Request().Context())
	if err != nil {
		logging.Warn("Model health probe failed", logging.Server, "error", err)
	}
	return ctx.JSON(http.StatusOK, statusResponse{
		Status:       "ok",
		ModelHealthy: healthy,
		QueueDepth:   s.broker.QueueDepth(),
	})
}

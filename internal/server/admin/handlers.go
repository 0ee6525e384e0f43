package admin

import (
	"net/http"
	"time"

	"detection-api/fingerprint"
	"detection-api/logging"

	"github.com/labstack/echo/v4"
)

var ErrPredictionNotFound = echo.NewHTTPError(http.StatusNotFound, "No cached prediction for fingerprint")

type statusResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	QueueDepth    *int    `json:"queue_depth,omitempty"`
}

func (s *Server) getStatus(ctx echo.Context) error {
	response := statusResponse{
		Status:        "ok",
		UptimeSeconds: time.Since(s.startTime).Seconds(),
	}
	if s.b != nil {
		depth := s.b.QueueDepth()
		response.QueueDepth = &depth
	}
	return ctx.JSON(http.StatusOK, response)
}

type cachedPredictionResponse struct {
	Fingerprint string  `json:"fingerprint"`
	Probability float64 `json:"probability"`
}

func (s *Server) getCachedPrediction(ctx echo.Context) error {
	fp := fingerprint.Fingerprint(ctx.Param("fingerprint"))

	probability, found, err := s.store.Get(ctx.Request().Context(), fp)
	if err != nil {
		logging.Error("Cache lookup failed", logging.Cache, "fingerprint", fp, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Cache lookup failed")
	}
	if !found {
		return ErrPredictionNotFound
	}
	return ctx.JSON(http.StatusOK, cachedPredictionResponse{
		Fingerprint: fp.String(),
		Probability: probability,
	})
}

func (s *Server) getStats(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.stats.Stats())
}

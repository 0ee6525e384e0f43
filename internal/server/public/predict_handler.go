package public

import (
	"errors"
	"io"
	"net/http"

	"detection-api/broker"
	"detection-api/internal/metrics"
	"detection-api/logging"
	"detection-api/predictionapi"

	"github.com/labstack/echo/v4"
)

func (s *Server) postPredict(ctx echo.Context) error {
	file, err := ctx.FormFile(predictionapi.MultipartFileField)
	if err != nil {
		logging.Warn("Predict request without image file", logging.Server, "error", err)
		return ErrImageFileRequired
	}

	src, err := file.Open()
	if err != nil {
		logging.Error("Failed to open uploaded image", logging.Server, "error", err)
		return ErrImageUnreadable
	}
	defer src.Close()

	image, err := io.ReadAll(src)
	if err != nil {
		logging.Error("Failed to read uploaded image", logging.Server, "error", err)
		return ErrImageUnreadable
	}

	result, err := s.broker.Submit(ctx.Request().Context(), image)
	switch {
	case errors.Is(err, broker.ErrInferenceTimeout):
		metrics.PredictRequestsTotal.WithLabelValues("timeout").Inc()
		return ctx.JSON(http.StatusGatewayTimeout,
			predictionapi.ErrorResponse{Error: predictionapi.TimeoutErrorMessage})
	case errors.Is(err, broker.ErrQueueFull), errors.Is(err, broker.ErrShuttingDown):
		metrics.PredictRequestsTotal.WithLabelValues("queue_full").Inc()
		return ctx.JSON(http.StatusServiceUnavailable,
			predictionapi.ErrorResponse{Error: predictionapi.BusyErrorMessage})
	case err != nil:
		metrics.PredictRequestsTotal.WithLabelValues("error").Inc()
		logging.Error("Inference failed", logging.Inferences, "error", err)
		return ErrInferenceFailed
	}

	outcome := "inferred"
	if result.FromCache {
		outcome = "cache_hit"
	}
	metrics.PredictRequestsTotal.WithLabelValues(outcome).Inc()

	return ctx.JSON(http.StatusOK, predictionapi.PredictResponse{
		FromCache:   result.FromCache,
		Probability: result.Probability,
	})
}

package challenge

import (
	"net/http"
	"strconv"

	"detection-api/logging"
	"detection-api/platform"

	"github.com/labstack/echo/v4"
)

// PriorityHeader carries the scheduling priority assigned to the request.
const PriorityHeader = "X-Challenge-Priority"

func (s *Server) postChallenge(ctx echo.Context) error {
	body := platform.NewChallengeRequest()
	if err := ctx.Bind(&body); err != nil {
		logging.Error("Failed to decode challenge request", logging.Challenges, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}

	reqCtx := ctx.Request().Context()

	if refused, reason := s.handler.Blacklist(reqCtx, &body); refused {
		return echo.NewHTTPError(http.StatusForbidden, reason)
	}

	priority := s.handler.Priority(reqCtx, &body)
	ctx.Response().Header().Set(PriorityHeader, strconv.FormatFloat(priority, 'f', -1, 64))

	response := s.handler.Forward(reqCtx, &body)
	return ctx.JSON(http.StatusOK, response)
}

func (s *Server) getStats(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.handler.Stats())
}

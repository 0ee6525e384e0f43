package public

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrImageFileRequired = echo.NewHTTPError(http.StatusBadRequest, "Image file is required")
	ErrImageUnreadable   = echo.NewHTTPError(http.StatusBadRequest, "Image file could not be read")
	ErrInferenceFailed   = echo.NewHTTPError(http.StatusInternalServerError, "Inference failed")
)

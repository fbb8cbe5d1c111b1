package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ticketboss/internal/logger"
)

// NewErrorHandler returns the echo.HTTPErrorHandler for the API.
// *echo.HTTPError values keep their status: 404 from the router becomes
// {"message": "Resource not found"}, other client errors {"error": msg}.
// Anything else is unexpected: it is logged with request context and
// answered with 500, hiding the cause when production is true.
func NewErrorHandler(zl *zap.Logger, production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code < http.StatusInternalServerError {
			var body echo.Map
			switch he.Code {
			case http.StatusNotFound:
				body = echo.Map{"message": "Resource not found"}
			default:
				body = echo.Map{"error": fmt.Sprint(he.Message)}
			}
			_ = c.JSON(he.Code, body)
			return
		}

		logger.Error(c.Request().Context(), zl, "unexpected error",
			zap.String("method", c.Request().Method),
			zap.String("route", c.Path()),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Error(err),
		)
		msg := "An unexpected error occurred. Please try again later."
		if !production {
			msg = err.Error()
		}
		_ = c.JSON(http.StatusInternalServerError, echo.Map{"message": msg})
	}
}

package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/tvshow-catalog/internal/apperr"
)

// statusOf maps an error kind to its HTTP status.
func statusOf(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error": kind, "message": ..., details...}.
// Unclassified errors are logged and hidden behind a generic 500.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":   "internal_error",
			"message": "internal server error",
		})
	}
	if ae.Kind == apperr.KindUpstream {
		log.Warn("upstream failure", zap.String("path", c.Path()), zap.Error(err))
	}
	body := echo.Map{}
	for k, v := range ae.Details {
		body[k] = v
	}
	body["error"] = ae.Kind
	body["message"] = ae.Message
	return c.JSON(statusOf(ae.Kind), body)
}

package v1

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/hrygo/jobmatch/internal/errors"
	"github.com/hrygo/jobmatch/server/internal/observability"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusForError maps an error to its HTTP status and client-safe message.
// Provider output never reaches the client.
func statusForError(err error) (int, string) {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return http.StatusServiceUnavailable, "request canceled"
	}

	var coded *apperrors.Error
	if !errors.As(err, &coded) {
		return http.StatusInternalServerError, "internal error"
	}
	switch coded.Code {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound, "not available yet"
	case apperrors.ErrCodeParse:
		return http.StatusServiceUnavailable, "analysis temporarily unavailable, please retry"
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest, coded.Message
	case apperrors.ErrCodeConfiguration:
		return http.StatusInternalServerError, "service is not configured"
	case apperrors.ErrCodeUpstream:
		return http.StatusBadGateway, "upstream service unavailable"
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized, "authentication required"
	case apperrors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests, "rate limit exceeded"
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout, "request timed out"
	case apperrors.ErrCodeContextCanceled:
		return http.StatusServiceUnavailable, "request canceled"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeError(c echo.Context, err error) error {
	status, message := statusForError(err)
	code := apperrors.GetCodeFromError(err, "INTERNAL")

	if rc, ok := observability.FromContext(c.Request().Context()); ok {
		rc.Warn("request error",
			slog.String(observability.LogFieldErrorCode, string(code)),
			slog.String("error", err.Error()),
		)
	} else {
		slog.Warn("request error", "code", code, "error", err)
	}
	return c.JSON(status, ErrorResponse{Error: message, Code: string(code)})
}

package resource

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nrc/nrc/internal/platform/store"
)

// ValidationError is a caller mistake. Its message is safe to return.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// Invalid builds a ValidationError.
func Invalid(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsInvalid reports whether err is (or wraps) a ValidationError.
func IsInvalid(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// HTTPError maps a service error onto the response status. what names the
// entity in not-found messages. Store failures get a generic message and keep
// the cause as the internal error for the request log.
func HTTPError(err error, what string) error {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.msg)
	case errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, what+" not found")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "request cancelled").SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "store operation failed").SetInternal(err)
	}
}

// ListFailed answers a failed list with an empty result and an error
// indicator so views can still render.
func ListFailed(c echo.Context, what string) error {
	return c.JSON(http.StatusInternalServerError, map[string]any{
		"data":  []any{},
		"error": "failed to load " + what,
	})
}

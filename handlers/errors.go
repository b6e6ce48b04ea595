package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/votegate/services/otp"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Message   string         `json:"message"`
	ErrorCode string         `json:"error_code"`
	Details   map[string]any `json:"details,omitempty"`
}

func StatusFor(kind otp.Kind) int {
	switch kind {
	case otp.KindValidationFailed,
		otp.KindVoterIneligibleState,
		otp.KindUnitMismatch,
		otp.KindElectionClosed:
		return http.StatusBadRequest
	case otp.KindVoterNotFound, otp.KindElectionNotFound:
		return http.StatusNotFound
	case otp.KindAlreadyVoted, otp.KindAlreadyConsumed:
		return http.StatusConflict
	case otp.KindCodeMismatch:
		return http.StatusUnprocessableEntity
	case otp.KindExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c echo.Context, err error) error {
	var e *otp.Error
	if !errors.As(err, &e) || !e.Domain() {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message:   otp.ErrStoreUnavailable.Message,
			ErrorCode: string(otp.KindStoreUnavailable),
		})
	}

	return c.JSON(StatusFor(e.Kind), ErrorResponse{
		Message:   e.Message,
		ErrorCode: string(e.Kind),
		Details:   e.Details,
	})
}

func HTTPErrorHandler(c echo.Context, err error) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	}

	resp := ErrorResponse{Message: message, ErrorCode: errorCodeFor(code)}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, resp)
	}
	if err != nil {
		c.Logger().Error(err)
	}
}

func errorCodeFor(status int) string {
	switch status {
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusBadRequest:
		return string(otp.KindValidationFailed)
	default:
		if status >= 500 {
			return "INTERNAL_ERROR"
		}
		return "REQUEST_FAILED"
	}
}

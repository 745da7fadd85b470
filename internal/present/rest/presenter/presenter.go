package presenter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/basecard-xyz/basecard/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func BadRequest(c echo.Context, err error) error {
	slog.DebugContext(c.Request().Context(), "Bad request", slog.String("error", err.Error()), slog.String("module", "presenter"))
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func BadRequestMessage(c echo.Context, msg string) error {
	slog.DebugContext(c.Request().Context(), "Bad request", slog.String("error", msg), slog.String("module", "presenter"))
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func Unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: msg})
}

func Forbidden(c echo.Context, msg string) error {
	return c.JSON(http.StatusForbidden, errorResponse{Error: msg})
}

func NotFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, errorResponse{Error: msg})
}

func InternalError(c echo.Context, err error) error {
	slog.ErrorContext(c.Request().Context(), "Internal error", slog.String("error", err.Error()), slog.String("module", "presenter"))
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

// Error writes err with the status matching its domain type.
func Error(c echo.Context, err error) error {
	status := StatusOf(err)
	if status >= 500 {
		slog.ErrorContext(c.Request().Context(), "Request failed", slog.String("error", err.Error()), slog.String("module", "presenter"))
	}
	return c.JSON(status, errorResponse{Error: err.Error()})
}

// Mint writes a mint result; failures carry the status of their cause.
func Mint(c echo.Context, result domain.MintFlowResult) error {
	if result.Success {
		return c.JSON(http.StatusOK, result)
	}
	return c.JSON(StatusOf(result.Error), result)
}

func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrInput), errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPrecondition):
		return http.StatusPreconditionFailed
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrUserRejected):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrReverted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNetwork):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrAuth), errors.Is(err, domain.ErrSubmission):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

package handler

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sumire/guildcloner/internal/discord"
	"github.com/sumire/guildcloner/internal/domain"
)

// Envelope is the standard API response wrapper.
type Envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

// APIError represents an error in the API response.
type APIError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// JSON writes a JSON response with the standard envelope.
func JSON(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Data: data})
}

// HTTPErrorHandler is the global error handler for echo.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, apiErr := mapError(err)
	if wait, ok := discord.RetryAfter(err); ok {
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	}
	if jsonErr := c.JSON(status, Envelope{Error: &apiErr}); jsonErr != nil {
		slog.Error("failed to send error response", "error", jsonErr)
	}
}

func mapError(err error) (int, APIError) {
	// echo's own errors: unknown routes, bad methods, oversized bodies
	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		msg, _ := echoErr.Message.(string)
		if msg == "" {
			msg = http.StatusText(echoErr.Code)
		}
		return echoErr.Code, APIError{Code: http.StatusText(echoErr.Code), Message: msg}
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, APIError{
			Code:    "validation_error",
			Message: "Validation failed",
			Details: []FieldError{{Field: validationErr.Field, Message: validationErr.Message}},
		}
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, APIError{Code: "not_found", Message: "The requested clone job or resource was not found"}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, APIError{Code: "unauthorized", Message: "Authentication is required"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, APIError{Code: "forbidden", Message: "You do not have permission to perform this action"}
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, APIError{Code: "invalid_input", Message: "The request is invalid"}
	case errors.Is(err, domain.ErrSameGuild):
		return http.StatusBadRequest, APIError{Code: "same_guild", Message: domain.ErrSameGuild.Error()}
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, APIError{Code: "conflict", Message: err.Error()}
	}

	var discordErr *discord.APIError
	if errors.As(err, &discordErr) {
		if discordErr.Kind == discord.KindRateLimited {
			return http.StatusTooManyRequests, APIError{Code: "discord_rate_limited", Message: "Discord is rate limiting requests, try again later"}
		}
		slog.Warn("discord request failed", "error", err)
		return http.StatusBadGateway, APIError{Code: "discord_" + discordErr.Kind.String(), Message: "Discord rejected the request"}
	}

	slog.Error("unhandled error", "error", err)
	return http.StatusInternalServerError, APIError{Code: "internal_error", Message: "An unexpected error occurred"}
}

package handler

import (
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sumire/guildcloner/internal/domain"
	"github.com/sumire/guildcloner/internal/service"
)

const (
	contextKeyUserID = "user_id"

	// Browsers cannot set headers on websocket handshakes, so stream
	// requests may carry the access token in the query instead.
	accessTokenParam = "access_token"
)

// RequestLogger logs each HTTP request with structured fields. Probe
// endpoints listed in quiet are not logged.
func RequestLogger(quiet ...string) echo.MiddlewareFunc {
	skip := make(map[string]bool, len(quiet))
	for _, p := range quiet {
		skip[p] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if skip[c.Request().URL.Path] {
				return err
			}

			attrs := []any{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			}
			if userID, ok := GetUserID(c); ok {
				attrs = append(attrs, "user_id", userID)
			}
			slog.Info("http request", attrs...)

			return err
		}
	}
}

// JWTAuth validates the access token and injects the user ID into echo context.
func JWTAuth(auth *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c)
			if !ok {
				return domain.ErrUnauthorized
			}

			userID, err := auth.ValidateToken(token)
			if err != nil {
				return domain.ErrUnauthorized
			}

			c.Set(contextKeyUserID, userID)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		if strings.EqualFold(c.Request().Header.Get(echo.HeaderUpgrade), "websocket") {
			t := c.QueryParam(accessTokenParam)
			return t, t != ""
		}
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != "Bearer" || token == "" {
		return "", false
	}
	return token, true
}

// GetUserID extracts the authenticated user ID from echo context.
func GetUserID(c echo.Context) (int64, bool) {
	id, ok := c.Get(contextKeyUserID).(int64)
	return id, ok
}

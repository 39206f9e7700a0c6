package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// TokenValidator defines the interface for validating session tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*SessionClaims, error)
}

// SessionClaims represents the claims we expect from the token validator.
type SessionClaims struct {
	SessionID string
}

type contextKeySessionID struct{}

// ContextKeySessionID is exported for use in handlers and tests.
var ContextKeySessionID = contextKeySessionID{}

// GetSessionID retrieves the authenticated session ID from the context.
func GetSessionID(ctx context.Context) string {
	id, ok := ctx.Value(ContextKeySessionID).(string)
	if !ok {
		return ""
	}
	return id
}

// RequireSession rejects requests without a valid bearer session token and
// stores the session ID in the request context for handlers.
func RequireSession(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok {
				unauthorized(w, r, logger, "missing token")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(r.Context()),
				)
				unauthorized(w, r, logger, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySessionID, claims.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, logger *slog.Logger, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if _, err := w.Write([]byte(`{"error":"unauthorized"}`)); err != nil {
		logger.ErrorContext(r.Context(), "failed to write unauthorized response",
			"error", err,
			"reason", reason,
		)
	}
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iho/budgetledger/internal/infrastructure/auth"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// UserContextKey is the context key for the caller id
	UserContextKey ContextKey = "user_id"

	// UserIDHeader carries the caller id when JWT auth is disabled.
	UserIDHeader = "X-User-ID"
)

// Auth resolves the caller id. With a JWT manager the id comes from a
// Bearer token; without one it is read from the X-User-ID header.
func Auth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var userID string

			if jwtManager == nil {
				userID = strings.TrimSpace(r.Header.Get(UserIDHeader))
				if userID == "" {
					writeFailure(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing "+UserIDHeader+" header")
					return
				}
			} else {
				authHeader := r.Header.Get("Authorization")
				if authHeader == "" {
					writeFailure(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing authorization header")
					return
				}

				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
					writeFailure(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid authorization header format")
					return
				}

				claims, err := jwtManager.Verify(parts[1])
				if err != nil {
					if errors.Is(err, auth.ErrExpiredToken) {
						writeFailure(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "token expired")
						return
					}
					writeFailure(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
					return
				}
				userID = claims.UserID
			}

			ctx := context.WithValue(r.Context(), UserContextKey, userID)
			zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("user_id", userID)
			})

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the authenticated caller id.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserContextKey).(string)
	return userID, ok && userID != ""
}

package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"socialdash/internal/models"
)

const bearerPrefix = "Bearer "

// Middleware rejects requests without a valid bearer token and stores the token
// subject in the request context.
func Middleware(a *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeUnauthorized(w, "Authorization required")
				return
			}
			if !strings.HasPrefix(header, bearerPrefix) {
				writeUnauthorized(w, "Invalid authorization format")
				return
			}

			userID, err := a.Verify(strings.TrimSpace(header[len(bearerPrefix):]))
			if err != nil {
				slog.Debug("Token rejected", "error", err, "path", r.URL.Path)
				if errors.Is(err, ErrTokenExpired) {
					writeUnauthorized(w, "Token expired")
					return
				}
				writeUnauthorized(w, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// StaticUser attaches a fixed user id to every request. Used when auth is disabled.
func StaticUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// FromConfig returns the middleware matching cfg.
func FromConfig(cfg models.AuthConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return StaticUser(cfg.DevUserID)
	}
	return Middleware(NewAuthenticator(cfg.JWTSecret, WithIssuer(cfg.Issuer)))
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="socialdash"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(models.NewErrorResponse(message, models.ErrorCodeUnauthorized))
}

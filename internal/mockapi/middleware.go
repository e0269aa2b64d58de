// ABOUTME: Request logging, chaining, JSON error and bearer-auth middleware for the mock backend
// ABOUTME: Auth resolves HS256 tokens to claims; RequireRole gates admin-only endpoints

package mockapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markalston/equiplend/internal/models"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// LogRequest logs requests with timing. The caller's X-Request-ID is kept
// so client and server logs correlate.
func LogRequest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(wrapped, r)

		slog.Info("Request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}

// Chain applies middleware in order; the first is outermost.
// Chain(h, logging, auth) runs as logging(auth(h)).
func Chain(h http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeJSONError writes the middleware error shape {error, code}
func writeJSONError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, models.ErrorResponse{Error: message, Code: code})
}

type claimsKey struct{}

// Auth returns middleware that requires a valid bearer token
func Auth(tokens *TokenIssuer) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				slog.Debug("Auth rejected: no token", "path", r.URL.Path)
				writeJSONError(w, "Authentication required", http.StatusUnauthorized)
				return
			}
			if !strings.HasPrefix(authHeader, "Bearer ") {
				slog.Debug("Auth rejected: invalid format", "path", r.URL.Path)
				writeJSONError(w, "Invalid authorization format", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.Parse(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				slog.Debug("Auth rejected: invalid token", "path", r.URL.Path, "error", err)
				writeJSONError(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next(w, r.WithContext(ctx))
		}
	}
}

// GetClaims returns the claims set by Auth, or nil
func GetClaims(r *http.Request) *Claims {
	claims, _ := r.Context().Value(claimsKey{}).(*Claims)
	return claims
}

// RequireRole returns middleware that allows only the given role.
// Must run after Auth.
func RequireRole(role models.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r)
			if claims == nil || claims.Role != role {
				callerRole := models.Role("")
				if claims != nil {
					callerRole = claims.Role
				}
				slog.Warn("RBAC authorization denied",
					"path", r.URL.Path,
					"method", r.Method,
					"required_role", role,
					"user_role", callerRole,
				)
				writeJSONError(w, "Insufficient permissions", http.StatusForbidden)
				return
			}
			next(w, r)
		}
	}
}

package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"shopfront/internal/identity"
	"shopfront/internal/model"

	"github.com/rs/zerolog"
)

// CORS adds CORS headers to the response.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Auth resolves the bearer token against the identity provider and stores
// the caller on the request context. The health check and the gateway
// webhook are exempt; the webhook authenticates by signature instead.
func Auth(authenticator identity.Authenticator, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/webhooks/payment" {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				logger.Warn().Str("path", r.URL.Path).Msg("missing bearer token")
				writeAuthError(w, http.StatusUnauthorized, model.ErrUnauthorized)
				return
			}

			id, err := authenticator.Verify(r.Context(), token)
			if err != nil {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("token verification failed")
				writeAuthError(w, http.StatusUnauthorized, model.ErrUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireSeller rejects callers without the seller role. Must run after Auth.
func RequireSeller(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := identity.FromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, model.ErrUnauthorized)
				return
			}
			if !id.IsSeller() {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("user_id", id.UserID).
					Msg("seller role required")
				writeAuthError(w, http.StatusForbidden, model.ErrForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Logging logs HTTP requests with timing information.
func Logging(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap the response writer to capture the status code
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.statusCode).
				Dur("duration", duration).
				Str("remote_addr", r.RemoteAddr).
				Msg("http request")
		})
	}
}

// Recovery recovers from panics and returns a 500 error.
func Recovery(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error().
						Interface("panic", err).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Msg("panic recovered")

					writeAuthError(w, http.StatusInternalServerError, model.NewDomainError(model.ErrCodeInternalError, "internal server error"))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return token
	}
	return ""
}

// writeAuthError emits the standard error envelope from middleware, which
// cannot use the handler package's helpers without an import cycle.
func writeAuthError(w http.ResponseWriter, status int, err *model.DomainError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{
		Success: false,
		Message: err.Message,
		Code:    err.Code,
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code.
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

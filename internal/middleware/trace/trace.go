// Package trace assigns request ids and logs the start and end of every
// request.
package trace

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	applog "kakeibo/internal/log"
)

// HeaderRequestID is echoed on every response.
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// Middleware wraps next so that each request carries a request id in its
// context and a request-scoped logger.
func Middleware(logger *applog.Logger, clientIP func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.NewString()

			ip := ""
			if clientIP != nil {
				ip = clientIP(r)
			}

			reqLogger := logger.WithComponent(applog.ComponentHTTP).With(applog.FieldRequestID, requestID)
			ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
			ctx = applog.NewContext(ctx, reqLogger)
			r = r.WithContext(ctx)

			w.Header().Set(HeaderRequestID, requestID)
			reqLogger.DebugContext(ctx, "HTTP request started",
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldQuery, r.URL.RawQuery,
				applog.FieldClientIP, ip,
				applog.FieldUserAgent, r.UserAgent())

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			level := slog.LevelInfo
			switch {
			case rw.statusCode >= 500:
				level = slog.LevelError
			case rw.statusCode >= 400:
				level = slog.LevelWarn
			}
			reqLogger.Log(ctx, level, "HTTP request completed",
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldStatusCode, rw.statusCode,
				applog.FieldDuration, time.Since(start).Milliseconds(),
				applog.FieldClientIP, ip)
		})
	}
}

// responseWriter records the status code written by the handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// RequestID returns the id assigned by Middleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

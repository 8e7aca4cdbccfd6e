package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const loggerContextKey contextKey = "logger"

// RequestIDHeader carries the request ID in and out of the server.
const RequestIDHeader = "X-Request-ID"

// LoggerFromContext returns the logger RequestLogger tagged with the
// request ID, falling back to the default logger outside a request.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// RequestLogger tags every request with an ID (reusing a well-formed inbound
// X-Request-ID) and logs method, path, status and duration when it finishes.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		logger := slog.Default().With("request_id", id)
		ctx := context.WithValue(r.Context(), loggerContextKey, logger)
		next.ServeHTTP(rec, r.WithContext(ctx))

		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rec *statusRecorder) WriteHeader(code int) {
	if !rec.wroteHeader {
		rec.status = code
		rec.wroteHeader = true
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	rec.wroteHeader = true
	return rec.ResponseWriter.Write(b)
}

// Flush lets SSE responses stream through the recorder.
func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// SecurityHeaders sets a restrictive CSP plus the usual hardening headers.
// Inline styles are allowed for the form page; scripts are limited to the
// origin of scriptURL, which may be empty.
func SecurityHeaders(scriptURL string, next http.Handler) http.Handler {
	scriptSrc := "'none'"
	if u, err := url.Parse(scriptURL); err == nil && u.Scheme != "" && u.Host != "" {
		// Datastar compiles its attribute expressions at runtime.
		scriptSrc = u.Scheme + "://" + u.Host + " 'unsafe-eval'"
	}
	csp := "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src " + scriptSrc +
		"; connect-src 'self'; form-action 'self'; frame-ancestors 'none'; base-uri 'none'"

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", csp)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

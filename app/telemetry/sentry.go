// Package telemetry reports panics and server errors to Sentry.
package telemetry

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"

	appMiddleware "github.com/FACorreiaa/smart-travel-guide/app/middleware"
)

const serverName = "smart-travel-guide"

// Init configures the Sentry client. An empty DSN leaves reporting off and
// returns a no-op flush.
func Init(dsn, environment string, logger *slog.Logger) func() {
	if dsn == "" {
		logger.Info("Sentry DSN not set, error reporting disabled")
		return func() {}
	}
	if environment == "" {
		environment = "development"
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		ServerName:       serverName,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
	})
	if err != nil {
		logger.Warn("Sentry init failed, continuing without error reporting", slog.Any("error", err))
		return func() {}
	}
	logger.Info("Sentry initialized", slog.String("environment", environment))
	return func() { sentry.Flush(5 * time.Second) }
}

// Middleware gives every request its own hub, reports panics and 5xx
// responses, then re-panics so chi's Recoverer still writes the 500.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}
		ctx := sentry.SetHubOnContext(r.Context(), hub)
		r = r.WithContext(ctx)

		hub.Scope().SetRequest(r)
		if sessionID, ok := appMiddleware.GetSessionIDFromContext(ctx); ok {
			hub.Scope().SetTag("session_id", sessionID)
		}

		defer func() {
			if err := recover(); err != nil {
				hub.RecoverWithContext(ctx, err)
				panic(err)
			}
		}()

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		if rec.status >= http.StatusInternalServerError {
			hub.CaptureMessage(fmt.Sprintf("HTTP %d: %s %s", rec.status, r.Method, r.URL.Path))
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

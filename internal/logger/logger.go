package logger

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	httpmiddleware "github.com/wolfeidau/casework/internal/http"
)

func Setup(dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

// Requests logs one line per HTTP request and attaches a request scoped logger to
// the context, retrievable with zerolog.Ctx.
func Requests(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()

			lctx := logger.With().
				Str("method", r.Method).
				Str("path", r.URL.Path)
			if ip := httpmiddleware.ClientIPFromContext(r.Context()); ip != "" {
				lctx = lctx.Str("client_ip", ip)
			}
			reqLogger := lctx.Logger()

			rec := httpmiddleware.NewStatusRecorder(w)
			next.ServeHTTP(rec, r.WithContext(reqLogger.WithContext(r.Context())))

			event := reqLogger.Info()
			if rec.Status() >= http.StatusInternalServerError {
				event = reqLogger.Error()
			}
			event.
				Int("status", rec.Status()).
				Int("bytes", rec.Bytes()).
				Dur("duration", time.Since(started)).
				Msg("http request")
		})
	}
}

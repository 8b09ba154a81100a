package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// quietPaths are liveness and scrape endpoints whose steady polling would
// otherwise dominate the debug log.
var quietPaths = map[string]bool{
	"/health":  true,
	"/ping":    true,
	"/metrics": true,
}

// RequestLogger logs each request at debug level with its method, path,
// status, and elapsed time. A nil logger disables the middleware entirely;
// paths in quietPaths are never logged.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if quietPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

// statusWriter captures the status code written by the handler chain.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

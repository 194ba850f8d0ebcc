package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/google/uuid"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Logger logs one line per request with method, path, status and duration.
func Logger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			started := time.Now()
			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), RequestIDCtxKey, requestID)))

			log.Infof("HTTP %s %s -> %d (%s) request_id=%s", r.Method, r.URL.Path, rec.status, time.Since(started), requestID)
		})
	}
}

package trigger

import (
	"net/http"
	"time"

	chimd "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// accessLog writes one entry per request once the response is complete.
func accessLog(l *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimd.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				l.Info("request",
					zap.String("requestId", chimd.GetReqID(r.Context())),
					zap.String("httpMethod", r.Method),
					zap.String("uri", r.URL.Path),
					zap.String("remoteAddr", r.RemoteAddr),
					zap.Int("status", status),
					zap.Int("responseSize", ww.BytesWritten()),
					zap.Duration("lat", time.Since(start)),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/newsletter/internal/requestinfo"
)

// RequestLogger writes one INFO line per request.  UA and geo fields come
// from requestinfo, so mount it after the enricher.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())),
			}
			if ri := requestinfo.FromContext(r.Context()); ri != nil {
				fields = append(fields,
					zap.Stringer("client_ip", ri.Geo.IP),
					zap.String("browser", ri.UA.Browser),
					zap.String("device", ri.UA.Device),
					zap.Bool("bot", ri.UA.IsBot),
					zap.String("country", ri.Geo.CountryISO),
				)
			}
			log.Info("http request", fields...)
		})
	}
}

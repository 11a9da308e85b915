// Package metrics exposes send and trigger counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"barrage/internal/core"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "barrage_sends_total", Help: "send attempts by task, transport and result"},
		[]string{"task", "transport", "result"},
	)

	sendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "barrage_send_duration_seconds",
			Help:    "send latency.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"task", "transport"},
	)

	triggerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "barrage_trigger_requests_total", Help: "trigger listener requests by code and method"},
		[]string{"code", "method"},
	)
)

func init() {
	prometheus.MustRegister(
		sendsTotal,
		sendDuration,
		triggerRequests,
	)
}

// Reporter records every send event in the Prometheus collectors.
var Reporter core.Reporter = promReporter{}

type promReporter struct{}

func (promReporter) Report(e core.Event) {
	result := "success"
	if !e.Success {
		result = "failure"
	}
	sendsTotal.WithLabelValues(e.Task, e.Transport, result).Inc()
	sendDuration.WithLabelValues(e.Task, e.Transport).Observe(e.Duration.Seconds())
}

// Collect counts requests served by the trigger listener. Scrapes of
// /metrics are not counted.
func Collect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			if r.URL.Path == "/metrics" {
				return
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			triggerRequests.WithLabelValues(strconv.Itoa(status), r.Method).Inc()
		}()

		next.ServeHTTP(ww, r)
	})
}

// Handler returns the /metrics handler.
func Handler() http.Handler { return promhttp.Handler() }

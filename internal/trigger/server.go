package trigger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"barrage/internal/config"
	"barrage/internal/core"
	"barrage/internal/metrics"
	"barrage/internal/ratelimit"
	"barrage/internal/sink"

	"github.com/go-chi/chi/v5"
	chimd "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	DefaultAddr  = ":3000"
	maxBodyBytes = 1 << 20

	msgSent   = "Message sent successfully"
	msgFailed = "Failed to send message"
)

// Config describes the trigger listener.
type Config struct {
	Addr      string
	Traffic   *config.Traffic
	TaskIndex int    // task used when the request does not name one
	RPS       int    // 0 disables throttling
	JWTSecret string // empty disables authentication
}

// NewRouter builds the listener's routes:
//
//	POST /trigger   forward the JSON body to the selected task
//	GET  /healthz   liveness
//	GET  /metrics   Prometheus scrape
//
// A request may pick a task other than the default with ?task=<index>.
func NewRouter(cfg Config, d *Dispatcher, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimd.RequestID)
	r.Use(chimd.Recoverer)
	r.Use(accessLog(log))
	r.Use(metrics.Collect)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok")
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.JWTSecret != "" {
			r.Use(RequireJWT([]byte(cfg.JWTSecret)))
		}
		if cfg.RPS > 0 {
			r.Use(ratelimit.NewRateLimiter(cfg.RPS).Middleware)
		}
		r.Post("/trigger", triggerHandler(cfg, d, log))
	})

	return r
}

func triggerHandler(cfg Config, d *Dispatcher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index := cfg.TaskIndex
		if v := r.URL.Query().Get("task"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeText(w, http.StatusBadRequest, fmt.Sprintf("Invalid task index: %q", v))
				return
			}
			index = n
		}
		task, err := cfg.Traffic.Task(index)
		if err == nil {
			err = task.ValidateTarget()
		}
		if err != nil {
			writeText(w, http.StatusBadRequest, err.Error())
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if err != nil {
			writeText(w, http.StatusBadRequest, fmt.Sprintf("Reading request body: %v", err))
			return
		}
		if len(body) > maxBodyBytes {
			writeText(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		if !json.Valid(body) {
			writeText(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}

		err = d.Dispatch(r.Context(), task.DisplayName(index), task, json.RawMessage(body))
		if err == nil {
			writeText(w, http.StatusOK, msgSent)
			return
		}

		var sendErr *sink.SendError
		switch {
		case errors.As(err, &sendErr):
			writeText(w, http.StatusBadGateway, fmt.Sprintf("%s: %v", msgFailed, err))
		case errors.Is(err, core.ErrConfiguration):
			writeText(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", msgFailed, err))
		default:
			log.Error("trigger construction failed", zap.Int("taskIndex", index), zap.Error(err))
			writeText(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", msgFailed, err))
		}
	}
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barrage/internal/collector"
	"barrage/internal/config"
	"barrage/internal/coordinator"
	"barrage/internal/core"
	"barrage/internal/metrics"
	"barrage/internal/progress"
	"barrage/internal/scheduler"
	"barrage/internal/sink"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type workerOptions struct {
	configPath    string
	taskIndex     int
	metricsAddr   string
	progressEvery time.Duration
	summary       string
}

func newWorkerCmd() *cobra.Command {
	opts := workerOptions{}

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the periodic session for one task",
		Long: `Sends the task's payload at its configured frequency until its duration
has elapsed or the process is interrupted, then prints a summary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.summary != "text" && opts.summary != "json" && opts.summary != "none" {
				return fmt.Errorf("%w: --summary must be text, json or none, got %q", core.ErrConfiguration, opts.summary)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWorker(ctx, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath(), "Task list file (or BARRAGE_CONFIG env)")
	cmd.Flags().IntVarP(&opts.taskIndex, "task-index", "t", 0, "Index of the task to run")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	cmd.Flags().DurationVar(&opts.progressEvery, "progress", 0, "Log a progress line at this interval (0 disables)")
	cmd.Flags().StringVar(&opts.summary, "summary", "text", "Summary format: text, json, none")

	return cmd
}

func runWorker(ctx context.Context, opts workerOptions, out io.Writer) error {
	traffic, err := config.LoadTraffic(opts.configPath)
	if err != nil {
		return err
	}
	task, err := traffic.Task(opts.taskIndex)
	if err != nil {
		return err
	}
	name := task.DisplayName(opts.taskIndex)
	cfg, err := coordinator.SessionConfig(name, task)
	if err != nil {
		return err
	}
	log := logger.With(zap.String("task", name))

	s, err := (&sink.Factory{Logger: log}).New(ctx, task)
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.metricsAddr != "" {
		shutdown, err := serveMetrics(opts.metricsAddr, log)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	coll := collector.NewCollector()
	prog := progress.NewProgress(coll, opts.progressEvery, log)

	cfg.Logger = logger
	cfg.Reporter = core.MultiReporter{coll, metrics.Reporter}
	sched := scheduler.New(s, cfg)

	prog.Start()
	_, runErr := sched.Run(ctx)
	prog.Stop()
	coll.Close()
	if runErr != nil {
		return runErr
	}

	if dropped := coll.DroppedEvents(); dropped > 0 {
		log.Warn("summary is missing events", zap.Int64("dropped", dropped))
	}
	return writeSummary(out, opts.summary, coll.Compute())
}

func writeSummary(out io.Writer, format string, m *collector.Metrics) error {
	switch format {
	case "json":
		return collector.FormatJSON(out, m)
	case "none":
		return nil
	default:
		collector.FormatText(out, m)
		return nil
	}
}

// serveMetrics exposes /metrics until the returned shutdown func is called.
func serveMetrics(addr string, log *zap.Logger) (func(), error) {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return nil, fmt.Errorf("serving metrics on %s: %w", addr, err)
	case <-time.After(50 * time.Millisecond):
	}
	log.Info("metrics listening", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

package cli

import (
	"context"
	"fmt"
	"io"
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
	"barrage/internal/sink"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runOptions struct {
	configPath    string
	metricsAddr   string
	progressEvery time.Duration
	summary       string
}

func newRunCmd() *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every task in the list concurrently in this process",
		Long: `Starts one session per task, each with its own sink and cadence, and
prints a combined summary once all of them have stopped. A task that fails
to start does not stop the others.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.summary != "text" && opts.summary != "json" && opts.summary != "none" {
				return fmt.Errorf("%w: --summary must be text, json or none, got %q", core.ErrConfiguration, opts.summary)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runAll(ctx, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath(), "Task list file (or BARRAGE_CONFIG env)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while running")
	cmd.Flags().DurationVar(&opts.progressEvery, "progress", 0, "Log a progress line at this interval (0 disables)")
	cmd.Flags().StringVar(&opts.summary, "summary", "text", "Summary format: text, json, none")

	return cmd
}

func runAll(ctx context.Context, opts runOptions, out io.Writer) error {
	traffic, err := config.LoadTraffic(opts.configPath)
	if err != nil {
		return err
	}

	if opts.metricsAddr != "" {
		shutdown, err := serveMetrics(opts.metricsAddr, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	coll := collector.NewCollector()
	prog := progress.NewProgress(coll, opts.progressEvery, logger)
	coord := coordinator.NewCoordinator(
		&sink.Factory{Logger: logger},
		core.MultiReporter{coll, metrics.Reporter},
		logger,
	)

	tasks := traffic.Resolved()
	logger.Info("starting tasks", zap.Int("count", len(tasks)))
	prog.Start()
	coord.SpawnAll(ctx, tasks)
	results, runErr := coord.Wait()
	prog.Stop()
	coll.Close()

	for _, r := range results {
		if r.Err != nil {
			logger.Error("task did not run", zap.String("task", r.Task), zap.Error(r.Err))
		}
	}
	if err := writeSummary(out, opts.summary, coll.Compute()); err != nil {
		return err
	}
	return runErr
}

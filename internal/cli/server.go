package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barrage/internal/config"
	"barrage/internal/metrics"
	"barrage/internal/sink"
	"barrage/internal/trigger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServerCmd() *cobra.Command {
	var (
		configPath string
		cfg        trigger.Config
	)

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Listen for POST /trigger requests and forward them to a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			traffic, err := config.LoadTraffic(configPath)
			if err != nil {
				return err
			}
			task, err := traffic.Task(cfg.TaskIndex)
			if err != nil {
				return err
			}
			if err := task.ValidateTarget(); err != nil {
				return err
			}
			cfg.Traffic = traffic
			if cfg.JWTSecret == "" {
				cfg.JWTSecret = os.Getenv(envJWTSecret)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Task list file (or BARRAGE_CONFIG env)")
	cmd.Flags().IntVarP(&cfg.TaskIndex, "task-index", "t", 0, "Task used when a request does not name one")
	cmd.Flags().StringVar(&cfg.Addr, "addr", trigger.DefaultAddr, "Listen address")
	cmd.Flags().IntVar(&cfg.RPS, "rps", 0, "Maximum accepted triggers per second (0 = unlimited)")
	cmd.Flags().StringVar(&cfg.JWTSecret, "jwt-secret", "", "Require HS256 bearer tokens signed with this secret (or BARRAGE_JWT_SECRET env)")

	return cmd
}

// runServer starts the listener and blocks until ctx is cancelled.
func runServer(ctx context.Context, cfg trigger.Config) error {
	d := &trigger.Dispatcher{
		Builder:  &sink.Factory{Logger: logger},
		Reporter: metrics.Reporter,
		Logger:   logger,
	}
	app := trigger.NewApp(cfg, d, logger)

	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("shutdown requested", zap.String("cause", context.Cause(ctx).Error()))

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return app.Stop(stopCtx)
}

// Package cli implements the barrage command line.
package cli

import (
	"errors"
	"os"

	"barrage/internal/core"
	"barrage/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Process exit codes.
const (
	ExitSuccess       = 0
	ExitFailure       = 1 // a send or external command failed
	ExitConfiguration = 2
	ExitConstruction  = 3
)

const (
	envConfig       = "BARRAGE_CONFIG"
	envJWTSecret    = "BARRAGE_JWT_SECRET"
	defaultConfig   = "config.yaml"
	defaultOutDir   = "k8s/generated"
	defaultDeployFn = "deployment.yaml"
)

var (
	flagLogLevel  string
	flagLogFormat string
	flagLogFile   string

	logger = zap.NewNop()
)

// defaultConfigPath returns the task list path, checking BARRAGE_CONFIG first.
func defaultConfigPath() string {
	if s := os.Getenv(envConfig); s != "" {
		return s
	}
	return defaultConfig
}

// NewRootCmd creates the root cobra command for the barrage CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "barrage",
		Short: "barrage - periodic traffic generator for HTTP and message brokers",
		Long: `barrage sends JSON payloads to HTTP endpoints or message brokers at a
fixed rate for a bounded time, one worker per configured task. It can also
send single messages on demand and render Kubernetes manifests that run the
workers in a cluster.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.New(logging.Options{
				Level:  flagLogLevel,
				Format: flagLogFormat,
				File:   flagLogFile,
				Writer: cmd.ErrOrStderr(),
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "console", "Log format (console, json)")
	root.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Also write JSON logs to this rotated file")

	root.AddCommand(
		newWorkerCmd(),
		newRunCmd(),
		newSendCmd(),
		newServerCmd(),
		newDeployCmd(),
		newUndeployCmd(),
	)

	return root
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, core.ErrConfiguration):
		return ExitConfiguration
	case errors.Is(err, core.ErrConstruction):
		return ExitConstruction
	default:
		return ExitFailure
	}
}

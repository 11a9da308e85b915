// Command testserver runs a local HTTP target that accepts and counts the
// payloads barrage sends.
//
// Usage:
//
//	testserver [flags]
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barrage/internal/logging"
	"barrage/testserver"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var (
		addr     string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:          "testserver",
		Short:        "Run a local ingest target for barrage",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New(logging.Options{Level: logLevel, Format: "console"})
			defer log.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, addr, log)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "address to listen on")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, addr string, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           testserver.NewServer().Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("test server listening",
		zap.String("addr", "http://"+addr),
		zap.Strings("endpoints", []string{
			"POST /ingest",
			"ANY  /status/{code}",
			"ANY  /delay/{ms}",
			"ANY  /fail-rate?rate=N",
			"GET  /stats",
			"GET  /health",
		}),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

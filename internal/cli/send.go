package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"barrage/internal/config"
	"barrage/internal/metrics"
	"barrage/internal/sink"
	"barrage/internal/trigger"

	"github.com/spf13/cobra"
)

func newSendCmd() *cobra.Command {
	var (
		configPath string
		taskIndex  int
		data       string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one message to a task's target",
		Long: `Sends --data once through a freshly built sink. Data that is not valid
JSON is wrapped as {"message": "<data>"}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runSend(ctx, configPath, taskIndex, data, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Task list file (or BARRAGE_CONFIG env)")
	cmd.Flags().IntVarP(&taskIndex, "task-index", "t", 0, "Index of the task to send to")
	cmd.Flags().StringVarP(&data, "data", "d", "", "Payload to send")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall time limit")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func runSend(ctx context.Context, configPath string, taskIndex int, data string, out io.Writer) error {
	traffic, err := config.LoadTraffic(configPath)
	if err != nil {
		return err
	}
	task, err := traffic.Task(taskIndex)
	if err != nil {
		return err
	}
	if err := task.ValidateTarget(); err != nil {
		return err
	}
	payload, err := trigger.WrapMessage(data)
	if err != nil {
		return err
	}

	d := &trigger.Dispatcher{
		Builder:  &sink.Factory{Logger: logger},
		Reporter: metrics.Reporter,
		Logger:   logger,
	}
	if err := d.Dispatch(ctx, task.DisplayName(taskIndex), task, payload); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	fmt.Fprintln(out, "Message sent successfully")
	return nil
}

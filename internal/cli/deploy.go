package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"barrage/internal/config"
	"barrage/internal/deploy"

	"github.com/spf13/cobra"
)

type deployOptions struct {
	configPath     string
	deploymentPath string
	outDir         string
	apply          bool
}

func newDeployCmd() *cobra.Command {
	opts := deployOptions{}

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Generate Kubernetes manifests for every task",
		Long: `Writes one Deployment per task plus a ConfigMap holding the task list into
--output. With --apply the directory is then applied with kubectl.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath(), "Task list file (or BARRAGE_CONFIG env)")
	cmd.Flags().StringVar(&opts.deploymentPath, "deployment", defaultDeployFn, "Deployment sizing file")
	cmd.Flags().StringVarP(&opts.outDir, "output", "o", defaultOutDir, "Directory for generated manifests")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Run kubectl apply on the generated directory")

	return cmd
}

func runDeploy(ctx context.Context, opts deployOptions, out io.Writer) error {
	traffic, err := config.LoadTraffic(opts.configPath)
	if err != nil {
		return err
	}
	for _, task := range traffic.Tasks {
		if err := task.Validate(); err != nil {
			return err
		}
	}
	dep, err := config.LoadDeployment(opts.deploymentPath)
	if err != nil {
		return err
	}

	paths, err := deploy.Generate(dep, traffic, opts.outDir, time.Now(), logger)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(out, p)
	}

	if opts.apply {
		return deploy.NewKubectl(dep.Namespace, logger).Apply(ctx, opts.outDir)
	}
	return nil
}

func newUndeployCmd() *cobra.Command {
	var (
		outDir    string
		del       bool
		namespace string
	)

	cmd := &cobra.Command{
		Use:   "undeploy",
		Short: "Remove generated manifests, optionally deleting them from the cluster first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if del {
				if err := deploy.NewKubectl(namespace, logger).Delete(cmd.Context(), outDir); err != nil {
					return err
				}
			}
			return deploy.Clear(outDir)
		},
	}

	cmd.Flags().StringVarP(&outDir, "output", "o", defaultOutDir, "Directory of generated manifests")
	cmd.Flags().BoolVar(&del, "delete", false, "Run kubectl delete on the directory before removing it")
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace passed to kubectl")

	return cmd
}

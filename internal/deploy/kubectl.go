package deploy

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// CommandRunner abstracts command execution for testing.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

type osCommandRunner struct{}

func (osCommandRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Kubectl applies and deletes generated manifest directories.
type Kubectl struct {
	Binary    string // defaults to "kubectl"
	Namespace string
	runner    CommandRunner
	log       *zap.Logger
}

func NewKubectl(namespace string, log *zap.Logger) *Kubectl {
	return newKubectlWithRunner(namespace, log, osCommandRunner{})
}

func newKubectlWithRunner(namespace string, log *zap.Logger, runner CommandRunner) *Kubectl {
	if log == nil {
		log = zap.NewNop()
	}
	return &Kubectl{Binary: "kubectl", Namespace: namespace, runner: runner, log: log}
}

func (k *Kubectl) Apply(ctx context.Context, dir string) error {
	return k.run(ctx, "apply", "-f", dir)
}

// Delete removes the resources described in dir, tolerating ones that are
// already gone.
func (k *Kubectl) Delete(ctx context.Context, dir string) error {
	return k.run(ctx, "delete", "--ignore-not-found", "-f", dir)
}

func (k *Kubectl) run(ctx context.Context, verb string, flags ...string) error {
	args := append([]string{verb}, flags...)
	if k.Namespace != "" {
		args = append([]string{"--namespace", k.Namespace}, args...)
	}
	k.log.Info("running kubectl", zap.Strings("args", args))

	stdout, stderr, err := k.runner.Run(ctx, k.Binary, args...)
	if out := strings.TrimSpace(stdout); out != "" {
		k.log.Info("kubectl output", zap.String("stdout", out))
	}
	if err != nil {
		return fmt.Errorf("kubectl %s: %w: %s", verb, err, strings.TrimSpace(stderr))
	}
	return nil
}

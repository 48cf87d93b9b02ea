package harness

import (
	"context"
	"time"

	"clitest/internal/config"
	"clitest/pkg/logging"
)

const (
	programKubectl = "kubectl"
	programEverest = "everest"
)

// ExecutorOptions configures how CLIExecutor resolves and bounds commands.
type ExecutorOptions struct {
	// EverestBin replaces the "everest" program name.
	EverestBin string
	// KubectlBin replaces the "kubectl" program name.
	KubectlBin string
	// KubeContext is added to kubectl invocations as --context unless one is given.
	KubeContext string
	// Kubeconfig is exported as KUBECONFIG to kubectl and everest.
	Kubeconfig string
	// SkipWizardFlag is appended by EverestExecSkipWizard.
	SkipWizardFlag string
	// CommandTimeout applies to commands that carry no timeout of their own.
	CommandTimeout time.Duration
}

// ExecutorOptionsFromConfig maps the harness configuration onto executor options.
func ExecutorOptionsFromConfig(cfg config.Config) ExecutorOptions {
	return ExecutorOptions{
		EverestBin:     cfg.EverestBin,
		KubectlBin:     cfg.KubectlBin,
		KubeContext:    cfg.KubeContext,
		Kubeconfig:     cfg.Kubeconfig,
		SkipWizardFlag: cfg.SkipWizardFlag,
		CommandTimeout: cfg.CommandTimeout,
	}
}

// CLIExecutor runs kubectl and installer invocations through a ProcessRunner.
// It treats operator names, namespaces and other arguments as opaque tokens and never retries.
type CLIExecutor struct {
	runner  ProcessRunner
	options ExecutorOptions
}

// NewCLIExecutor creates an executor on top of runner.
func NewCLIExecutor(runner ProcessRunner, options ExecutorOptions) *CLIExecutor {
	if options.SkipWizardFlag == "" {
		options.SkipWizardFlag = config.DefaultSkipWizardFlag
	}
	return &CLIExecutor{
		runner:  runner,
		options: options,
	}
}

// Exec runs a full command line such as "kubectl get pods --namespace=everest-system".
func (e *CLIExecutor) Exec(ctx context.Context, commandLine string) (*ExecutionResult, error) {
	cmd, err := ParseCommandLine(commandLine)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, cmd)
}

// EverestExec runs the installer with args, e.g. "uninstall --assume-yes".
func (e *CLIExecutor) EverestExec(ctx context.Context, args string) (*ExecutionResult, error) {
	words, err := SplitArgs(args)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, NewCommand(programEverest, words...))
}

// EverestExecSkipWizard runs the installer non-interactively: the skip-wizard flag is added
// unless args already carry it.
func (e *CLIExecutor) EverestExecSkipWizard(ctx context.Context, args string) (*ExecutionResult, error) {
	words, err := SplitArgs(args)
	if err != nil {
		return nil, err
	}
	cmd := NewCommand(programEverest, words...)
	if !cmd.HasArg(e.options.SkipWizardFlag) {
		cmd = cmd.WithArgs(e.options.SkipWizardFlag)
	}
	return e.Run(ctx, cmd)
}

// Run resolves and runs an already structured command.
func (e *CLIExecutor) Run(ctx context.Context, cmd Command) (*ExecutionResult, error) {
	resolved := e.Resolve(cmd)
	result, err := e.runner.Run(ctx, resolved)
	if err != nil {
		logging.Debug("Executor", "%s: %v", resolved.String(), err)
		return nil, err
	}
	logging.Debug("Executor", "%s", result.String())
	return result, nil
}

// Resolve maps well-known program names onto the configured binaries and applies the
// cluster context and default timeout.
func (e *CLIExecutor) Resolve(cmd Command) Command {
	switch cmd.Program() {
	case programKubectl:
		if e.options.KubectlBin != "" {
			cmd = cmd.WithProgram(e.options.KubectlBin)
		}
		if e.options.KubeContext != "" && !cmd.HasArg("--context") {
			cmd = insertBeforeDoubleDash(cmd, "--context="+e.options.KubeContext)
		}
		if e.options.Kubeconfig != "" {
			cmd = cmd.WithEnv("KUBECONFIG", e.options.Kubeconfig)
		}
	case programEverest:
		if e.options.EverestBin != "" {
			cmd = cmd.WithProgram(e.options.EverestBin)
		}
		if e.options.Kubeconfig != "" {
			cmd = cmd.WithEnv("KUBECONFIG", e.options.Kubeconfig)
		}
	}
	if cmd.Timeout() == 0 && e.options.CommandTimeout > 0 {
		cmd = cmd.WithTimeout(e.options.CommandTimeout)
	}
	return cmd
}

// insertBeforeDoubleDash adds a flag ahead of a "--" separator so it is not passed through
// to a remote command (kubectl exec pod -- sh).
func insertBeforeDoubleDash(cmd Command, flag string) Command {
	args := cmd.Args()
	for i, a := range args {
		if a == "--" {
			out := make([]string, 0, len(args)+1)
			out = append(out, args[:i]...)
			out = append(out, flag)
			out = append(out, args[i:]...)
			return NewCommand(cmd.Program()).
				WithArgs(out...).
				withSettingsFrom(cmd)
		}
	}
	return cmd.WithArgs(flag)
}

func (c Command) withSettingsFrom(src Command) Command {
	out := c.clone()
	out.dir = src.dir
	out.env = append([]string(nil), src.env...)
	out.timeout = src.timeout
	return out
}

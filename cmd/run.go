package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"clitest/internal/config"
	"clitest/internal/harness"
	"clitest/internal/scenario"
	"clitest/pkg/logging"
)

const maxParallel = 50

type runOptions struct {
	scenarioPath string
	scenarios    []string
	tags         []string
	parallel     int
	failFast     bool
	timeout      time.Duration
	reportPath   string
	verbose      bool
	debug        bool
	watch        bool
}

func (o *runOptions) runConfiguration() scenario.RunConfiguration {
	return scenario.RunConfiguration{
		Timeout:      o.timeout,
		Scenarios:    o.scenarios,
		Tags:         o.tags,
		Parallel:     o.parallel,
		FailFast:     o.failFast,
		Verbose:      o.verbose,
		Debug:        o.debug,
		ScenarioPath: o.scenarioPath,
		ReportPath:   o.reportPath,
	}
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run Everest CLI test scenarios",
		Long: `Run test scenarios against the current cluster.

Without --scenarios the built-in scenarios are used. Select scenarios by name
with --scenario and by tag with --tag (a scenario matches when it carries any
of the given tags).

Examples:
  clitest run --scenario install-multiple-namespaces
  clitest run --tag install --parallel 2 --report report.json
  clitest run --scenarios ./scenarios --watch --verbose

The command exits with code 1 when any scenario fails.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.parallel < 1 || opts.parallel > maxParallel {
				return fmt.Errorf("parallel workers must be between 1 and %d, got %d", maxParallel, opts.parallel)
			}
			if opts.watch && opts.scenarioPath == "" {
				return fmt.Errorf("--watch requires --scenarios")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.scenarioPath, "scenarios", "", "Scenario file or directory (default: built-in scenarios)")
	flags.StringSliceVar(&opts.scenarios, "scenario", nil, "Run only the named scenario (repeatable)")
	flags.StringSliceVar(&opts.tags, "tag", nil, "Run only scenarios with this tag (repeatable)")
	flags.IntVar(&opts.parallel, "parallel", 1, fmt.Sprintf("Number of scenarios run at once (1-%d)", maxParallel))
	flags.BoolVar(&opts.failFast, "fail-fast", false, "Do not start new scenarios after the first failure")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Minute, "Default timeout per scenario")
	flags.StringVar(&opts.reportPath, "report", "", "Write a JSON or YAML report to this file or directory")
	flags.BoolVar(&opts.verbose, "verbose", false, "Print every step and stream command output")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging and print command output of passing steps")
	flags.BoolVar(&opts.watch, "watch", false, "Re-run when scenario files change")

	_ = cmd.RegisterFlagCompletionFunc("scenario", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		scenarios, err := scenario.LoadPath(opts.scenarioPath)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return scenario.Names(scenarios), cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("tag", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		scenarios, err := scenario.LoadPath(opts.scenarioPath)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return scenario.Tags(scenarios), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runScenarios(cmd *cobra.Command, opts *runOptions) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if opts.debug {
		logging.InitForCLI(logging.LevelDebug, cmd.ErrOrStderr())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.watch {
		return scenario.NewWatcher(opts.scenarioPath, 0).Run(ctx, func(ctx context.Context) {
			if _, err := runOnce(ctx, cmd, cfg, opts); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "❌ %v\n", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n👀 Watching %s for changes (Ctrl+C to stop)\n", opts.scenarioPath)
		})
	}

	suite, err := runOnce(ctx, cmd, cfg, opts)
	if err != nil {
		return err
	}
	if !suite.Succeeded() {
		return errTestsFailed
	}
	return nil
}

// runOnce loads, runs and reports the selected scenarios a single time.
func runOnce(ctx context.Context, cmd *cobra.Command, cfg config.Config, opts *runOptions) (*scenario.SuiteResult, error) {
	runCfg := opts.runConfiguration()
	out := cmd.OutOrStdout()

	scenarios, err := scenario.Load(runCfg)
	if err != nil {
		return nil, err
	}
	if len(scenarios) == 0 {
		fmt.Fprintf(out, "⚠️  No scenarios matched the given filters\n")
		return &scenario.SuiteResult{}, nil
	}

	console := scenario.NewConsoleReporter(out, opts.verbose, opts.debug, true)
	structured := scenario.NewStructuredReporter()
	stopCapture := structured.CaptureLogs(logging.LevelWarn)
	defer stopCapture()

	var fixtureOpts []harness.FixtureOption
	if opts.verbose {
		fixtureOpts = append(fixtureOpts, harness.WithOutput(cmd.ErrOrStderr()))
	}
	runner := scenario.NewRunner(
		scenario.MultiReporter(console, structured),
		scenario.NewFixtureFactory(cfg, fixtureOpts...),
	)

	suite, err := runner.Run(ctx, runCfg, scenarios)
	if err != nil {
		return nil, fmt.Errorf("test execution failed: %w", err)
	}

	if opts.reportPath != "" {
		path, err := structured.WriteReport(opts.reportPath)
		if err != nil {
			fmt.Fprintf(out, "⚠️  Failed to save detailed report: %v\n", err)
		} else {
			fmt.Fprintf(out, "📄 Detailed report saved to: %s\n", path)
		}
	}
	return suite, nil
}

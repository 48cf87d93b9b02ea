package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clitest/internal/config"
	"clitest/internal/scenario"
	"clitest/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a failed scenario or a general error.
	ExitCodeError = 1
	// ExitCodeInvalidInput indicates invalid configuration or scenario files.
	ExitCodeInvalidInput = 2
)

// errTestsFailed is returned by run when at least one scenario failed or errored. The
// summary has already been printed, so Execute only sets the exit code.
var errTestsFailed = errors.New("some scenarios failed")

// reportedError marks errors whose details were already printed by the command.
type reportedError struct {
	err error
}

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command for the clitest application.
var rootCmd = &cobra.Command{
	Use:   "clitest",
	Short: "End-to-end tests for the Everest CLI",
	Long: `clitest drives the Everest installer and kubectl against a Kubernetes cluster
and checks the results: operator pods appear in the right namespaces after an
install, and namespaces disappear after an uninstall.

Scenarios are YAML files; a built-in set covers the common install and
uninstall flows.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logging.InitForCLI(level, cmd.ErrOrStderr())
		return nil
	},
}

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with a code matching the outcome.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "clitest version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		var reported reportedError
		if !errors.Is(err, errTestsFailed) && !errors.As(err, &reported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var problems scenario.Problems
	if errors.As(err, &problems) {
		return ExitCodeInvalidInput
	}
	var cfgErrs *config.ConfigurationErrorCollection
	if errors.As(err, &cfgErrs) {
		return ExitCodeInvalidInput
	}

	return ExitCodeError
}

// loadConfig layers defaults, the config file, CLITEST_* variables and the flags of cmd.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v := config.NewViper(cfgFile)
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return config.Config{}, err
	}
	return config.Load(v)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default is $HOME/.config/clitest/config.yaml)")
	flags.StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	defaults := config.GetDefaultConfig()
	flags.String("everest-bin", defaults.EverestBin, "Everest installer binary")
	flags.String("kubectl-bin", defaults.KubectlBin, "kubectl binary")
	flags.String("kube-context", "", "Kubernetes context (default is the current context)")
	flags.String("kubeconfig", "", "Path to the kubeconfig file")
	flags.Duration("command-timeout", defaults.CommandTimeout, "Timeout for a single command")
	flags.Duration("poll-interval", defaults.PollInterval, "Default interval between condition checks")
	flags.Duration("poll-timeout", defaults.PollTimeout, "Default timeout for a condition")
	flags.String("skip-wizard-flag", defaults.SkipWizardFlag, "Flag that makes the installer non-interactive")
	flags.String("everest-url", "", "Everest API URL (default is the API server proxy)")
	flags.String("everest-namespace", defaults.EverestNamespace, "Namespace of the everest service")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newValidateCmd())
}

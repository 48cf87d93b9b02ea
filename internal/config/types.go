package config

import "time"

// Config is the harness configuration shared by every scenario.
//
// Values come, in increasing precedence, from built-in defaults, an optional YAML file,
// CLITEST_* environment variables and command line flags.
type Config struct {
	// EverestBin is the installer binary, resolved through PATH when not absolute.
	EverestBin string `mapstructure:"everest_bin" yaml:"everest_bin"`
	// KubectlBin is the kubectl binary, resolved through PATH when not absolute.
	KubectlBin string `mapstructure:"kubectl_bin" yaml:"kubectl_bin"`
	// KubeContext is passed to kubectl as --context and used for the cluster handle.
	// Empty means the current context of the kubeconfig.
	KubeContext string `mapstructure:"kube_context" yaml:"kube_context,omitempty"`
	// Kubeconfig overrides the default kubeconfig loading rules.
	Kubeconfig string `mapstructure:"kubeconfig" yaml:"kubeconfig,omitempty"`

	// CommandTimeout bounds every single command run.
	CommandTimeout time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`
	// PollInterval is the default interval between condition checks.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// PollTimeout is the default deadline for a condition to become true.
	PollTimeout time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout"`

	// SkipWizardFlag is appended to installer invocations that must not prompt.
	SkipWizardFlag string `mapstructure:"skip_wizard_flag" yaml:"skip_wizard_flag"`

	// EverestURL is the Everest API base URL. When empty the API is reached through the
	// Kubernetes API server proxy in EverestNamespace.
	EverestURL string `mapstructure:"everest_url" yaml:"everest_url,omitempty"`
	// EverestNamespace is the namespace of the everest service.
	EverestNamespace string `mapstructure:"everest_namespace" yaml:"everest_namespace"`
}

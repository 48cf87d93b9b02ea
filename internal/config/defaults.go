package config

import "time"

const (
	DefaultEverestBin       = "everest"
	DefaultKubectlBin       = "kubectl"
	DefaultCommandTimeout   = 10 * time.Minute
	DefaultPollInterval     = 500 * time.Millisecond
	DefaultPollTimeout      = 5 * time.Minute
	DefaultSkipWizardFlag   = "--skip-wizard"
	DefaultEverestNamespace = "everest-system"
)

// GetDefaultConfig returns the configuration used when nothing else is set.
func GetDefaultConfig() Config {
	return Config{
		EverestBin:       DefaultEverestBin,
		KubectlBin:       DefaultKubectlBin,
		CommandTimeout:   DefaultCommandTimeout,
		PollInterval:     DefaultPollInterval,
		PollTimeout:      DefaultPollTimeout,
		SkipWizardFlag:   DefaultSkipWizardFlag,
		EverestNamespace: DefaultEverestNamespace,
	}
}

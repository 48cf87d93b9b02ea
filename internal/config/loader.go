package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"clitest/pkg/logging"
)

const (
	// EnvPrefix prefixes every environment variable read by the loader (CLITEST_EVEREST_BIN, ...).
	EnvPrefix = "CLITEST"
	// ConfigFileEnvVar points at an explicit configuration file.
	ConfigFileEnvVar = "CLITEST_CONFIG"

	userConfigDir  = ".config/clitest"
	configFileName = "config"
)

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"everest-bin":       "everest_bin",
	"kubectl-bin":       "kubectl_bin",
	"kube-context":      "kube_context",
	"kubeconfig":        "kubeconfig",
	"command-timeout":   "command_timeout",
	"poll-interval":     "poll_interval",
	"poll-timeout":      "poll_timeout",
	"skip-wizard-flag":  "skip_wizard_flag",
	"everest-url":       "everest_url",
	"everest-namespace": "everest_namespace",
}

// NewViper returns a viper instance preloaded with defaults and environment binding.
// explicitPath may be empty, in which case CLITEST_CONFIG and then the user config
// directory are searched for config.yaml.
func NewViper(explicitPath string) *viper.Viper {
	v := viper.New()

	defaults := GetDefaultConfig()
	v.SetDefault("everest_bin", defaults.EverestBin)
	v.SetDefault("kubectl_bin", defaults.KubectlBin)
	v.SetDefault("kube_context", defaults.KubeContext)
	v.SetDefault("kubeconfig", defaults.Kubeconfig)
	v.SetDefault("command_timeout", defaults.CommandTimeout)
	v.SetDefault("poll_interval", defaults.PollInterval)
	v.SetDefault("poll_timeout", defaults.PollTimeout)
	v.SetDefault("skip_wizard_flag", defaults.SkipWizardFlag)
	v.SetDefault("everest_url", defaults.EverestURL)
	v.SetDefault("everest_namespace", defaults.EverestNamespace)

	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if explicitPath == "" {
		explicitPath = os.Getenv(ConfigFileEnvVar)
	}
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, userConfigDir))
		}
		v.AddConfigPath(".")
	}
	return v
}

// BindFlags binds every known configuration flag present in fs to its key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for flagName, key := range flagKeys {
		f := fs.Lookup(flagName)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", flagName, err)
		}
	}
	return nil
}

// Load reads the configuration file (when present), decodes and validates the result.
// A missing file is only an error when it was requested explicitly.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || v.ConfigFileUsed() != "" {
			return Config{}, fmt.Errorf("error loading config: %w", err)
		}
		logging.Debug("ConfigLoader", "No config file found, using defaults and environment")
	} else {
		logging.Info("ConfigLoader", "Loaded configuration from %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every value is usable.
func (c Config) Validate() error {
	var errs ConfigurationErrorCollection

	if strings.TrimSpace(c.EverestBin) == "" {
		errs.Add(ConfigurationError{Key: "everest_bin", Message: "must not be empty", Suggestion: "set --everest-bin or CLITEST_EVEREST_BIN"})
	}
	if strings.TrimSpace(c.KubectlBin) == "" {
		errs.Add(ConfigurationError{Key: "kubectl_bin", Message: "must not be empty", Suggestion: "set --kubectl-bin or CLITEST_KUBECTL_BIN"})
	}
	if c.CommandTimeout <= 0 {
		errs.Add(ConfigurationError{Key: "command_timeout", Message: "must be positive"})
	}
	if c.PollInterval <= 0 {
		errs.Add(ConfigurationError{Key: "poll_interval", Message: "must be positive"})
	}
	if c.PollTimeout <= 0 {
		errs.Add(ConfigurationError{Key: "poll_timeout", Message: "must be positive"})
	}
	if c.PollTimeout > 0 && c.PollInterval > c.PollTimeout {
		errs.Add(ConfigurationError{Key: "poll_interval", Message: "must not exceed poll_timeout"})
	}

	if errs.HasErrors() {
		return &errs
	}
	return nil
}

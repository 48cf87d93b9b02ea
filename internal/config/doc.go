// Package config holds the harness configuration: which binaries to run, which cluster
// context to target and the default timeouts for commands and condition polling.
//
// Configuration is layered with viper:
//
//  1. built-in defaults (GetDefaultConfig)
//  2. a YAML file: --config, CLITEST_CONFIG, or config.yaml in ~/.config/clitest or the
//     working directory
//  3. CLITEST_* environment variables (CLITEST_EVEREST_BIN, CLITEST_KUBE_CONTEXT, ...)
//  4. command line flags bound with BindFlags
//
// Example file:
//
//	everest_bin: /usr/local/bin/everest
//	kube_context: kind-everest
//	command_timeout: 15m
//	poll_interval: 1s
//	poll_timeout: 10m
package config

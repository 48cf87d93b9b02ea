// Package logging provides subsystem-tagged, leveled logging for clitest.
//
// It is a thin layer over log/slog. The CLI initializes it once:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Runner", "running %s", cmd)
//	logging.Debug("Poller", "attempt %d: condition not met", n)
//	logging.Error("Scenario", err, "scenario %s failed", name)
//
// Every entry carries a "subsystem" attribute. InitForCLI also installs the same handler as
// controller-runtime's global logger, so messages from the cluster client share the output.
//
// Until InitForCLI is called all log calls are dropped, which keeps library use and unit tests
// quiet.
package logging

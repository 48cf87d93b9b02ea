// Package harness runs external CLIs for end-to-end tests and asserts on what they print.
//
// A test obtains Fixtures, groups its actions into Steps, runs commands through the
// CLIExecutor and checks the ExecutionResult. Comparisons are substring checks on
// whitespace-normalized text. Eventually-consistent cluster state is awaited with the Poller,
// never with fixed sleeps.
//
// A non-zero exit code is data, not an error: only AssertSuccess turns it into a
// CommandFailedError. Errors returned by the runner mean the command could not be run or did
// not finish in time.
package harness

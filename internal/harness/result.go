package harness

import (
	"fmt"
	"time"
)

// ExecutionResult is the immutable record of one finished command run.
// A non-zero exit code is a normal result; only AssertSuccess turns it into an error.
type ExecutionResult struct {
	command   Command
	stdout    string
	stderr    string
	exitCode  int
	startedAt time.Time
	duration  time.Duration
}

// NewExecutionResult builds a result. Runners call it exactly once per run; tests use it to
// script command output.
func NewExecutionResult(cmd Command, stdout, stderr string, exitCode int, startedAt time.Time, duration time.Duration) *ExecutionResult {
	return &ExecutionResult{
		command:   cmd,
		stdout:    stdout,
		stderr:    stderr,
		exitCode:  exitCode,
		startedAt: startedAt,
		duration:  duration,
	}
}

func (r *ExecutionResult) Command() Command         { return r.command }
func (r *ExecutionResult) Stdout() string           { return r.stdout }
func (r *ExecutionResult) Stderr() string           { return r.stderr }
func (r *ExecutionResult) ExitCode() int            { return r.exitCode }
func (r *ExecutionResult) StartedAt() time.Time     { return r.startedAt }
func (r *ExecutionResult) Duration() time.Duration  { return r.duration }
func (r *ExecutionResult) NormalizedStdout() string { return Normalize(r.stdout) }
func (r *ExecutionResult) NormalizedStderr() string { return Normalize(r.stderr) }

// Success reports whether the command exited with code 0.
func (r *ExecutionResult) Success() bool { return r.exitCode == 0 }

// AssertSuccess fails with a CommandFailedError when the exit code is not 0.
// Output content is never consulted.
func (r *ExecutionResult) AssertSuccess() error {
	if r.exitCode == 0 {
		return nil
	}
	return &CommandFailedError{
		Command:  r.command,
		ExitCode: r.exitCode,
		Stdout:   r.stdout,
		Stderr:   r.stderr,
	}
}

// OutContainsNormalizedMany checks that every expected entry is a substring of stdout after
// whitespace normalization. An empty list passes.
func (r *ExecutionResult) OutContainsNormalizedMany(expected ...string) error {
	return r.containsAll(StreamStdout, r.stdout, expected)
}

// OutErrContainsNormalizedMany is OutContainsNormalizedMany for stderr, where the installer
// reports operator lifecycle messages.
func (r *ExecutionResult) OutErrContainsNormalizedMany(expected ...string) error {
	return r.containsAll(StreamStderr, r.stderr, expected)
}

// OutNotContains fails on the first forbidden entry found in stdout. Stderr is not consulted.
func (r *ExecutionResult) OutNotContains(forbidden ...string) error {
	return r.containsNone(StreamStdout, r.stdout, forbidden)
}

// OutErrNotContains fails on the first forbidden entry found in stderr.
func (r *ExecutionResult) OutErrNotContains(forbidden ...string) error {
	return r.containsNone(StreamStderr, r.stderr, forbidden)
}

func (r *ExecutionResult) containsAll(stream Stream, output string, expected []string) error {
	normalized := Normalize(output)
	for _, want := range expected {
		if !containsIn(normalized, want) {
			return &MissingOutputError{Command: r.command, Stream: stream, Expected: want, Output: output}
		}
	}
	return nil
}

func (r *ExecutionResult) containsNone(stream Stream, output string, forbidden []string) error {
	normalized := Normalize(output)
	for _, bad := range forbidden {
		if containsIn(normalized, bad) {
			return &UnexpectedOutputError{Command: r.command, Stream: stream, Found: bad, Output: output}
		}
	}
	return nil
}

// String summarizes the result for logs.
func (r *ExecutionResult) String() string {
	return fmt.Sprintf("%s (exit %d, %s)", r.command.String(), r.exitCode, r.duration.Round(time.Millisecond))
}

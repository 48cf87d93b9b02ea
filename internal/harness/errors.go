package harness

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinels for errors.Is checks against the harness error taxonomy.
var (
	ErrCommandFailed    = errors.New("command failed")
	ErrMissingOutput    = errors.New("missing output")
	ErrUnexpectedOutput = errors.New("unexpected output")
	ErrTimeoutExceeded  = errors.New("timeout exceeded")
	ErrPollTimeout      = errors.New("poll timeout")
)

// Stream identifies one of the captured output streams.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// CommandFailedError is returned by AssertSuccess for a non-zero exit code.
type CommandFailedError struct {
	Command  Command
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *CommandFailedError) Error() string {
	return fmt.Sprintf("command %q exited with code %d\n%s", e.Command.String(), e.ExitCode, formatOutput(e.Stdout, e.Stderr))
}

func (e *CommandFailedError) Is(target error) bool { return target == ErrCommandFailed }

// MissingOutputError reports the first expected substring absent from a stream.
type MissingOutputError struct {
	Command  Command
	Stream   Stream
	Expected string
	// Output is the raw stream content.
	Output string
}

func (e *MissingOutputError) Error() string {
	return fmt.Sprintf("%s of %q does not contain %q\nnormalized %s: %s",
		e.Stream, e.Command.String(), e.Expected, e.Stream, Normalize(e.Output))
}

func (e *MissingOutputError) Is(target error) bool { return target == ErrMissingOutput }

// UnexpectedOutputError reports the first forbidden substring present in a stream.
type UnexpectedOutputError struct {
	Command Command
	Stream  Stream
	Found   string
	Output  string
}

func (e *UnexpectedOutputError) Error() string {
	return fmt.Sprintf("%s of %q unexpectedly contains %q\nnormalized %s: %s",
		e.Stream, e.Command.String(), e.Found, e.Stream, Normalize(e.Output))
}

func (e *UnexpectedOutputError) Is(target error) bool { return target == ErrUnexpectedOutput }

// TimeoutExceededError is returned when a process outlives its deadline.
// Stdout and Stderr hold whatever was captured before the process was killed.
type TimeoutExceededError struct {
	Command Command
	Timeout time.Duration
	Elapsed time.Duration
	Stdout  string
	Stderr  string
}

func (e *TimeoutExceededError) Error() string {
	limit := "context deadline"
	if e.Timeout > 0 {
		limit = e.Timeout.String()
	}
	return fmt.Sprintf("command %q did not finish within %s (ran %s)\n%s",
		e.Command.String(), limit, e.Elapsed.Round(time.Millisecond), formatOutput(e.Stdout, e.Stderr))
}

func (e *TimeoutExceededError) Is(target error) bool { return target == ErrTimeoutExceeded }

// PollTimeoutError is returned when a condition never became true.
type PollTimeoutError struct {
	Description string
	// Timeout is the limit that applied: the wait timeout or, when shorter, what was left of
	// the caller's deadline.
	Timeout time.Duration
	// Elapsed is how long the poller actually waited.
	Elapsed  time.Duration
	Attempts int
	// LastErr is the last error returned by the predicate, if any.
	LastErr error
}

func (e *PollTimeoutError) Error() string {
	what := "condition"
	if e.Description != "" {
		what = fmt.Sprintf("condition %q", e.Description)
	}
	msg := fmt.Sprintf("%s not met within %s (%d attempts in %s)",
		what, e.Timeout.Round(time.Millisecond), e.Attempts, e.Elapsed.Round(time.Millisecond))
	if e.LastErr != nil {
		msg += ": last error: " + e.LastErr.Error()
	}
	return msg
}

func (e *PollTimeoutError) Is(target error) bool { return target == ErrPollTimeout }

func (e *PollTimeoutError) Unwrap() error { return e.LastErr }

// SpawnError is returned when a process could not be started at all.
type SpawnError struct {
	Command Command
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %q: %v", e.Command.String(), e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ParseError is returned for argument strings that cannot be split into words.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse command line %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StepError tags a failure with the step path it happened in.
type StepError struct {
	Path []string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q: %v", e.PathString(), e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// PathString joins the step path with " > ".
func (e *StepError) PathString() string {
	return strings.Join(e.Path, " > ")
}

func formatOutput(stdout, stderr string) string {
	var b strings.Builder
	b.WriteString("--- stdout ---\n")
	b.WriteString(strings.TrimRight(stdout, "\n"))
	b.WriteString("\n--- stderr ---\n")
	b.WriteString(strings.TrimRight(stderr, "\n"))
	return b.String()
}

package harness

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"clitest/pkg/logging"
)

// waitDelay bounds how long Wait keeps copying output after the process is gone, for
// children that inherited the pipes and keep them open.
const waitDelay = 2 * time.Second

// ProcessRunner executes a command to completion.
//
// A non-zero exit code is returned as a normal ExecutionResult. Errors are reserved for
// environment faults: SpawnError (executable missing, start failure) and TimeoutExceededError.
type ProcessRunner interface {
	Run(ctx context.Context, cmd Command) (*ExecutionResult, error)
}

// ExecRunner is the ProcessRunner backed by os/exec.
type ExecRunner struct {
	// Tee, when set, receives a live copy of stdout and stderr of every run.
	Tee io.Writer
}

// NewExecRunner creates a runner that spawns real processes.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run spawns exactly one process for cmd and waits for it.
//
// The deadline is the earlier of cmd.Timeout() and ctx. When it passes the whole process
// group is killed and a TimeoutExceededError with the partial output is returned.
// A relative program path such as ./bin/everest is resolved against cmd.Dir() when set;
// bare names are looked up in PATH.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*ExecutionResult, error) {
	if cmd.Program() == "" {
		return nil, &SpawnError{Command: cmd, Err: errEmptyCommand}
	}

	path, err := lookPath(cmd)
	if err != nil {
		return nil, &SpawnError{Command: cmd, Err: err}
	}

	runCtx := ctx
	if cmd.Timeout() > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout())
		defer cancel()
	}
	if err := runCtx.Err(); err != nil {
		return nil, &TimeoutExceededError{Command: cmd, Timeout: cmd.Timeout()}
	}

	c := exec.Command(path, cmd.Args()...)
	c.Dir = cmd.Dir()
	if env := cmd.Env(); len(env) > 0 {
		c.Env = append(os.Environ(), env...)
	}
	c.WaitDelay = waitDelay
	configureProcAttr(c)

	capture := newOutputCapture(r.Tee)
	c.Stdout = capture.stdoutWriter()
	c.Stderr = capture.stderrWriter()

	logging.Debug("Runner", "Starting %s", cmd.String())

	start := time.Now()
	if err := c.Start(); err != nil {
		return nil, &SpawnError{Command: cmd, Err: err}
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Wait()
	}()

	select {
	case waitErr := <-done:
		return r.finish(cmd, capture, start, waitErr)
	case <-runCtx.Done():
		// The process may have finished right at the deadline.
		select {
		case waitErr := <-done:
			return r.finish(cmd, capture, start, waitErr)
		default:
		}

		if err := killProcessGroup(c.Process.Pid); err != nil {
			logging.Warn("Runner", "Failed to kill %s (PID %d): %v", cmd.Program(), c.Process.Pid, err)
		}
		select {
		case <-done:
		case <-time.After(waitDelay + time.Second):
			logging.Warn("Runner", "Process %d did not exit after kill", c.Process.Pid)
		}

		stdout, stderr := capture.snapshot()
		elapsed := time.Since(start)
		logging.Info("Runner", "Timed out after %s: %s", elapsed.Round(time.Millisecond), cmd.String())
		return nil, &TimeoutExceededError{
			Command: cmd,
			Timeout: cmd.Timeout(),
			Elapsed: elapsed,
			Stdout:  stdout,
			Stderr:  stderr,
		}
	}
}

func lookPath(cmd Command) (string, error) {
	program := cmd.Program()
	if cmd.Dir() != "" && !filepath.IsAbs(program) && strings.ContainsRune(program, filepath.Separator) {
		abs, err := filepath.Abs(filepath.Join(cmd.Dir(), program))
		if err != nil {
			return "", err
		}
		program = abs
	}
	return exec.LookPath(program)
}

func (r *ExecRunner) finish(cmd Command, capture *outputCapture, start time.Time, waitErr error) (*ExecutionResult, error) {
	duration := time.Since(start)
	stdout, stderr := capture.snapshot()

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(waitErr, &exitErr):
			exitCode = exitErr.ExitCode()
		case errors.Is(waitErr, exec.ErrWaitDelay):
			// Output pipes were held open by a child; the process itself exited cleanly.
			logging.Debug("Runner", "Output of %s still open after exit, truncated", cmd.Program())
		default:
			return nil, &SpawnError{Command: cmd, Err: waitErr}
		}
	}

	logging.Debug("Runner", "Finished %s: exit=%d duration=%s stdout=%d bytes stderr=%d bytes",
		cmd.String(), exitCode, duration.Round(time.Millisecond), len(stdout), len(stderr))

	return NewExecutionResult(cmd, stdout, stderr, exitCode, start, duration), nil
}

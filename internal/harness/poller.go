package harness

import (
	"context"
	"math"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"clitest/pkg/logging"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	defaultPollTimeout  = 5 * time.Minute
)

// Predicate reports whether an asynchronous condition holds. Errors are remembered but do
// not stop the poll; the condition is simply not met yet.
type Predicate func(ctx context.Context) (bool, error)

// PollSpec bounds one wait.
type PollSpec struct {
	// Description names the condition in errors and logs.
	Description string
	// Interval between checks. Zero uses the poller default.
	Interval time.Duration
	// Timeout for the whole wait. Zero uses the poller default.
	Timeout time.Duration
	// BackoffFactor multiplies the interval after every miss. Values <= 1 keep it constant.
	BackoffFactor float64
	// MaxInterval caps the interval when backing off.
	MaxInterval time.Duration
}

// Poller waits for eventually-consistent state instead of sleeping for a fixed time.
type Poller struct {
	interval time.Duration
	timeout  time.Duration
}

// NewPoller creates a poller with default interval and timeout. Non-positive values fall back
// to 500ms and 5m.
func NewPoller(interval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}
	return &Poller{interval: interval, timeout: timeout}
}

// WaitUntil checks pred immediately and then after every interval until it returns true.
// It returns a PollTimeoutError when the wait timeout or ctx expires first.
func (p *Poller) WaitUntil(ctx context.Context, spec PollSpec, pred Predicate) error {
	interval := spec.Interval
	if interval <= 0 {
		interval = p.interval
	}
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = p.timeout
	}
	factor := spec.BackoffFactor
	if factor < 1 {
		factor = 1
	}

	start := time.Now()
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// A shorter parent deadline is the one that will end the wait.
	limit := timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < limit {
			limit = max(remaining, 0)
		}
	}

	ceiling := timeout
	if spec.MaxInterval > 0 && spec.MaxInterval < ceiling {
		ceiling = spec.MaxInterval
	}
	backoff := wait.Backoff{
		Duration: min(interval, ceiling),
		Factor:   factor,
		Steps:    math.MaxInt32,
		Cap:      ceiling,
	}

	attempts := 0
	var lastErr error
	for {
		attempts++
		ok, err := pred(waitCtx)
		if err == nil && ok {
			logging.Debug("Poller", "Condition %q met after %d attempt(s)", spec.Description, attempts)
			return nil
		}
		if err != nil {
			lastErr = err
			logging.Debug("Poller", "Condition %q attempt %d: %v", spec.Description, attempts, err)
		}

		timer := time.NewTimer(backoff.Step())
		select {
		case <-waitCtx.Done():
			timer.Stop()
			return &PollTimeoutError{
				Description: spec.Description,
				Timeout:     limit,
				Elapsed:     time.Since(start),
				Attempts:    attempts,
				LastErr:     lastErr,
			}
		case <-timer.C:
		}
	}
}

// CommandSucceeds is met once commandLine exits with code 0.
func CommandSucceeds(cli *CLIExecutor, commandLine string) Predicate {
	return func(ctx context.Context) (bool, error) {
		result, err := cli.Exec(ctx, commandLine)
		if err != nil {
			return false, err
		}
		if err := result.AssertSuccess(); err != nil {
			return false, err
		}
		return true, nil
	}
}

// CommandOutputContains is met once commandLine succeeds and its stdout contains every
// expected entry.
func CommandOutputContains(cli *CLIExecutor, commandLine string, expected ...string) Predicate {
	return func(ctx context.Context) (bool, error) {
		result, err := cli.Exec(ctx, commandLine)
		if err != nil {
			return false, err
		}
		if err := result.AssertSuccess(); err != nil {
			return false, err
		}
		if err := result.OutContainsNormalizedMany(expected...); err != nil {
			return false, err
		}
		return true, nil
	}
}

// CommandStderrContains is met once the stderr of commandLine contains every expected entry,
// whatever the exit code, for "NotFound" checks where kubectl exits non-zero.
func CommandStderrContains(cli *CLIExecutor, commandLine string, expected ...string) Predicate {
	return func(ctx context.Context) (bool, error) {
		result, err := cli.Exec(ctx, commandLine)
		if err != nil {
			return false, err
		}
		if err := result.OutErrContainsNormalizedMany(expected...); err != nil {
			return false, err
		}
		return true, nil
	}
}

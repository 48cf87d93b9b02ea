package scenario

import (
	"context"
	"sync"
	"time"

	"clitest/internal/config"
	"clitest/internal/harness"
)

type scriptedResponse struct {
	stdout   string
	stderr   string
	exitCode int
	err      error
}

// fakeRunner answers from a queue per rendered command line; the last queued response repeats.
type fakeRunner struct {
	mu        sync.Mutex
	calls     []string
	responses map[string][]scriptedResponse
	fallback  scriptedResponse
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{responses: make(map[string][]scriptedResponse)}
}

func (f *fakeRunner) on(line string, responses ...scriptedResponse) *fakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[line] = append(f.responses[line], responses...)
	return f
}

func (f *fakeRunner) Run(ctx context.Context, cmd harness.Command) (*harness.ExecutionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := cmd.String()
	f.calls = append(f.calls, key)
	if ctx.Err() != nil {
		return nil, &harness.TimeoutExceededError{Command: cmd}
	}

	resp := f.fallback
	if queue := f.responses[key]; len(queue) > 0 {
		resp = queue[0]
		if len(queue) > 1 {
			f.responses[key] = queue[1:]
		}
	}
	if resp.err != nil {
		return nil, resp.err
	}
	return harness.NewExecutionResult(cmd, resp.stdout, resp.stderr, resp.exitCode, time.Now(), time.Millisecond), nil
}

func (f *fakeRunner) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRunner) count(line string) int {
	n := 0
	for _, c := range f.commands() {
		if c == line {
			n++
		}
	}
	return n
}

// fakeFactory builds fixtures on top of runner with fast polling.
func fakeFactory(runner harness.ProcessRunner) FixtureFactory {
	cfg := config.GetDefaultConfig()
	cfg.PollInterval = time.Millisecond
	cfg.PollTimeout = time.Second
	return func(s Scenario, runID string, listener harness.StepListener) *harness.Fixtures {
		opts := []harness.FixtureOption{harness.WithRunner(runner)}
		if listener != nil {
			opts = append(opts, harness.WithStepListener(listener))
		}
		return harness.NewFixtures(cfg, opts...)
	}
}

package harness

import (
	"context"
	"sync"
	"time"
)

// scriptedResponse is what the fake runner returns for one matching invocation.
type scriptedResponse struct {
	stdout   string
	stderr   string
	exitCode int
	err      error
}

// fakeRunner records every command and answers from a queue per program+args line.
type fakeRunner struct {
	mu        sync.Mutex
	calls     []Command
	responses map[string][]scriptedResponse
	fallback  scriptedResponse
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{responses: make(map[string][]scriptedResponse)}
}

// on queues a response for the exact rendered command line. The last queued response repeats.
func (f *fakeRunner) on(line string, resp scriptedResponse) *fakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[line] = append(f.responses[line], resp)
	return f
}

func (f *fakeRunner) Run(ctx context.Context, cmd Command) (*ExecutionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)

	if err := ctx.Err(); err != nil {
		return nil, &TimeoutExceededError{Command: cmd}
	}

	resp := f.fallback
	key := cmd.String()
	if queue := f.responses[key]; len(queue) > 0 {
		resp = queue[0]
		if len(queue) > 1 {
			f.responses[key] = queue[1:]
		}
	}
	if resp.err != nil {
		return nil, resp.err
	}
	return NewExecutionResult(cmd, resp.stdout, resp.stderr, resp.exitCode, time.Now(), time.Millisecond), nil
}

func (f *fakeRunner) commands() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.calls...)
}

package harness

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"clitest/pkg/logging"
)

var errStepAborted = errors.New("step aborted before returning")

// StepStatus is the outcome of a recorded step.
type StepStatus string

const (
	StepRunning StepStatus = "RUNNING"
	StepPassed  StepStatus = "PASSED"
	StepFailed  StepStatus = "FAILED"
)

// StepRecord is one node of the step tree.
type StepRecord struct {
	Name      string        `json:"name"`
	Path      []string      `json:"path"`
	Status    StepStatus    `json:"status"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
	Children  []*StepRecord `json:"children,omitempty"`
}

// StepListener is notified when steps start and finish, at every nesting level.
type StepListener interface {
	StepStarted(path []string)
	StepFinished(record StepRecord)
}

// StepRecorder groups actions into named, nestable steps for reporting.
// One recorder belongs to one scenario and is used from a single goroutine; reads of the
// recorded tree are safe from others.
type StepRecorder struct {
	mu       sync.Mutex
	stack    []*StepRecord
	roots    []*StepRecord
	listener StepListener
}

// NewStepRecorder creates a recorder. listener may be nil.
func NewStepRecorder(listener StepListener) *StepRecorder {
	return &StepRecorder{listener: listener}
}

// Step runs body under the scope name.
//
// An error from body is wrapped once in a StepError carrying the full path of the innermost
// failing step; enclosing steps return that StepError unchanged. There is no retry.
// A body that panics or exits its goroutine (t.FailNow) still closes the step, recorded as
// failed, before the panic continues.
func (r *StepRecorder) Step(name string, body func() error) (err error) {
	rec := r.push(name)
	if r.listener != nil {
		r.listener.StepStarted(rec.Path)
	}
	logging.Debug("Steps", "Step started: %s", joinPath(rec.Path))

	completed := false
	defer func() {
		if completed {
			return
		}
		v := recover()
		cause := errStepAborted
		if v != nil {
			cause = fmt.Errorf("panic: %v", v)
		}
		r.finish(rec, &StepError{Path: append([]string(nil), rec.Path...), Err: cause})
		if v != nil {
			panic(v)
		}
	}()

	err = body()
	completed = true

	var stepErr *StepError
	if err != nil && !errors.As(err, &stepErr) {
		err = &StepError{Path: append([]string(nil), rec.Path...), Err: err}
	}
	r.finish(rec, err)
	return err
}

func (r *StepRecorder) finish(rec *StepRecord, err error) {
	snapshot := r.pop(rec, err)
	if r.listener != nil {
		r.listener.StepFinished(snapshot)
	}
	if err != nil {
		logging.Debug("Steps", "Step failed: %s: %v", joinPath(rec.Path), err)
	} else {
		logging.Debug("Steps", "Step passed: %s (%s)", joinPath(rec.Path), snapshot.Duration.Round(time.Millisecond))
	}
}

// Path returns the names of the currently open steps, outermost first.
func (r *StepRecorder) Path() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.stack) == 0 {
		return nil
	}
	return append([]string(nil), r.stack[len(r.stack)-1].Path...)
}

// Records returns a deep copy of the top-level steps recorded so far.
func (r *StepRecorder) Records() []StepRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StepRecord, 0, len(r.roots))
	for _, root := range r.roots {
		out = append(out, copyRecord(root))
	}
	return out
}

func (r *StepRecorder) push(name string) *StepRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	var path []string
	if len(r.stack) > 0 {
		parent := r.stack[len(r.stack)-1]
		path = append(path, parent.Path...)
	}
	path = append(path, name)

	rec := &StepRecord{
		Name:      name,
		Path:      path,
		Status:    StepRunning,
		StartTime: time.Now(),
	}
	if len(r.stack) > 0 {
		parent := r.stack[len(r.stack)-1]
		parent.Children = append(parent.Children, rec)
	} else {
		r.roots = append(r.roots, rec)
	}
	r.stack = append(r.stack, rec)
	return rec
}

func (r *StepRecorder) pop(rec *StepRecord, err error) StepRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.Duration = time.Since(rec.StartTime)
	if err != nil {
		rec.Status = StepFailed
		rec.Error = err.Error()
	} else {
		rec.Status = StepPassed
	}
	if n := len(r.stack); n > 0 && r.stack[n-1] == rec {
		r.stack = r.stack[:n-1]
	}
	return copyRecord(rec)
}

func copyRecord(rec *StepRecord) StepRecord {
	out := *rec
	out.Path = append([]string(nil), rec.Path...)
	out.Children = nil
	for _, child := range rec.Children {
		c := copyRecord(child)
		out.Children = append(out.Children, &c)
	}
	return out
}

func joinPath(path []string) string {
	return (&StepError{Path: path}).PathString()
}

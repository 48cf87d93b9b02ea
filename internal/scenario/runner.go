package scenario

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"clitest/internal/cluster"
	"clitest/internal/config"
	"clitest/internal/harness"
	"clitest/pkg/logging"
)

// FixtureFactory builds the dependency bundle for one scenario run. listener may be nil.
type FixtureFactory func(s Scenario, runID string, listener harness.StepListener) *harness.Fixtures

// NewFixtureFactory returns a factory producing fresh fixtures per scenario from cfg. All
// bundles share one lazily connected cluster client.
func NewFixtureFactory(cfg config.Config, opts ...harness.FixtureOption) FixtureFactory {
	connector := cluster.NewConnector(cfg.Kubeconfig, cfg.KubeContext)
	return func(s Scenario, runID string, listener harness.StepListener) *harness.Fixtures {
		all := make([]harness.FixtureOption, 0, len(opts)+2)
		all = append(all, harness.WithClusterConnector(connector))
		if listener != nil {
			all = append(all, harness.WithStepListener(listener))
		}
		all = append(all, opts...)
		return harness.NewFixtures(cfg, all...)
	}
}

// StepProgressReporter is implemented by reporters that show nested steps as they start.
type StepProgressReporter interface {
	ReportStepStarted(runID string, path []string)
}

type progressListener struct {
	runID    string
	reporter StepProgressReporter
}

func (l progressListener) StepStarted(path []string)       { l.reporter.ReportStepStarted(l.runID, path) }
func (l progressListener) StepFinished(_ harness.StepRecord) {}

// scenarioRunner implements the Runner interface
type scenarioRunner struct {
	reporter    Reporter
	newFixtures FixtureFactory
}

// NewRunner creates a runner reporting to reporter.
func NewRunner(reporter Reporter, newFixtures FixtureFactory) Runner {
	return &scenarioRunner{
		reporter:    reporter,
		newFixtures: newFixtures,
	}
}

// Run executes scenarios with at most cfg.Parallel running at once. With FailFast, scenarios
// not yet started after a failure are reported as skipped; running ones finish.
func (r *scenarioRunner) Run(ctx context.Context, cfg RunConfiguration, scenarios []Scenario) (*SuiteResult, error) {
	suite := &SuiteResult{
		StartTime:      time.Now(),
		TotalScenarios: len(scenarios),
		Configuration:  cfg,
	}
	r.reporter.ReportStart(cfg)

	parallel := cfg.Parallel
	if parallel < 1 {
		parallel = 1
	}
	if parallel > len(scenarios) && len(scenarios) > 0 {
		parallel = len(scenarios)
	}
	r.reporter.SetParallelMode(parallel > 1)

	results := make([]ScenarioResult, len(scenarios))
	var (
		mu   sync.Mutex
		stop atomic.Bool
		g    errgroup.Group
	)
	g.SetLimit(parallel)

	for i, s := range scenarios {
		g.Go(func() error {
			var res ScenarioResult
			switch {
			case stop.Load():
				res = notStarted(s, "skipped after an earlier failure (fail-fast)")
			case ctx.Err() != nil:
				res = notStarted(s, "run cancelled: "+ctx.Err().Error())
			default:
				res = r.runScenario(ctx, s, cfg)
			}

			if cfg.FailFast && (res.Result == ResultFailed || res.Result == ResultError) {
				if !stop.Swap(true) {
					logging.Debug("Runner", "Fail-fast triggered by scenario: %s", s.Name)
				}
			}

			mu.Lock()
			results[i] = res
			suite.count(res)
			mu.Unlock()

			r.reporter.ReportScenarioResult(res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	suite.ScenarioResults = results
	suite.EndTime = time.Now()
	suite.Duration = suite.EndTime.Sub(suite.StartTime)
	r.reporter.ReportSuiteResult(*suite)
	return suite, nil
}

func notStarted(s Scenario, reason string) ScenarioResult {
	now := time.Now()
	return ScenarioResult{
		Scenario:  s,
		Result:    ResultSkipped,
		StartTime: now,
		EndTime:   now,
		Error:     reason,
	}
}

// runScenario runs before and steps under the scenario timeout, stopping at the first
// failure, then always runs cleanup under the parent context.
func (r *scenarioRunner) runScenario(ctx context.Context, s Scenario, cfg RunConfiguration) ScenarioResult {
	runID := uuid.NewString()
	result := ScenarioResult{
		RunID:       runID,
		Scenario:    s,
		Result:      ResultPassed,
		StartTime:   time.Now(),
		StepResults: make([]StepResult, 0, s.StepCount()),
	}
	r.reporter.ReportScenarioStart(s, runID)

	finish := func() ScenarioResult {
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)
		return result
	}

	if s.Skip {
		result.Result = ResultSkipped
		return finish()
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = cfg.Timeout
	}
	scenarioCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		scenarioCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var listener harness.StepListener
	if p, ok := r.reporter.(StepProgressReporter); ok {
		listener = progressListener{runID: runID, reporter: p}
	}
	exec := &stepExecutor{
		fixtures:  r.newFixtures(s, runID, listener),
		templates: NewTemplateProcessor(s, runID),
		scenario:  s.Name,
		runID:     runID,
	}

	recordFailure := func(sr StepResult, err error) {
		if result.Result != ResultPassed {
			return
		}
		result.Result = sr.Result
		result.Error = err.Error()
		var stepErr *harness.StepError
		if errors.As(err, &stepErr) {
			result.FailedPath = stepErr.PathString()
		}
	}

	failed := false
	for _, phase := range s.phases()[:2] {
		for _, step := range phase.steps {
			if failed {
				break
			}
			sr, err := exec.runTopLevel(scenarioCtx, phase.name, step)
			result.StepResults = append(result.StepResults, sr)
			r.reporter.ReportStepResult(sr)
			if err != nil {
				recordFailure(sr, err)
				failed = true
			}
		}
	}

	// Cleanup is not bound by the scenario timeout; it has to run after a timeout too.
	for _, step := range s.Cleanup {
		sr, err := exec.runTopLevel(ctx, PhaseCleanup, step)
		result.StepResults = append(result.StepResults, sr)
		r.reporter.ReportStepResult(sr)
		if err != nil {
			recordFailure(sr, err)
		}
	}

	result.Steps = exec.fixtures.Steps.Records()
	logging.Debug("Runner", "Scenario %s (%s) finished: %s", s.Name, runID, result.Result)
	return finish()
}

// stepExecutor runs the steps of one scenario.
type stepExecutor struct {
	fixtures  *harness.Fixtures
	templates *TemplateProcessor
	scenario  string
	runID     string
}

// tracker collects the last command result of a top-level step.
type tracker struct {
	last     *harness.ExecutionResult
	attempts int
}

// renderError marks template failures, which are scenario errors rather than test failures.
type renderError struct {
	err error
}

func (e *renderError) Error() string { return "template: " + e.err.Error() }
func (e *renderError) Unwrap() error { return e.err }

func (e *stepExecutor) runTopLevel(ctx context.Context, phase Phase, step Step) (StepResult, error) {
	sr := StepResult{
		Scenario:  e.scenario,
		RunID:     e.runID,
		Name:      step.Name,
		Phase:     phase,
		StartTime: time.Now(),
	}

	var tr tracker
	err := e.fixtures.Step(step.Name, func() error {
		return e.execute(ctx, step, &tr)
	})

	sr.Duration = time.Since(sr.StartTime)
	sr.Attempts = tr.attempts
	if tr.last != nil {
		code := tr.last.ExitCode()
		sr.Command = tr.last.Command().String()
		sr.ExitCode = &code
		sr.Stdout = tr.last.Stdout()
		sr.Stderr = tr.last.Stderr()
	}

	if err != nil {
		sr.Result = classify(err)
		sr.Error = err.Error()
		return sr, err
	}
	sr.Result = ResultPassed
	return sr, nil
}

func (e *stepExecutor) execute(ctx context.Context, step Step, tr *tracker) error {
	rendered, err := e.templates.RenderStep(step)
	if err != nil {
		return &renderError{err: err}
	}

	if rendered.IsGroup() {
		for _, child := range rendered.Steps {
			err := e.fixtures.Step(child.Name, func() error {
				return e.execute(ctx, child, tr)
			})
			if err != nil {
				return err
			}
		}
		return nil
	}

	// Parse once up front so a malformed command fails fast instead of being polled.
	if rendered.Run != "" {
		if _, err := harness.ParseCommandLine(rendered.Run); err != nil {
			return err
		}
	} else if _, err := harness.SplitArgs(rendered.Everest); err != nil {
		return err
	}

	stepCtx := ctx
	if rendered.Timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, rendered.Timeout)
		defer cancel()
	}

	action := func(ctx context.Context) (*harness.ExecutionResult, error) {
		tr.attempts++
		var (
			res *harness.ExecutionResult
			err error
		)
		switch {
		case rendered.Run != "":
			res, err = e.fixtures.CLI.Exec(ctx, rendered.Run)
		case rendered.SkipWizard:
			res, err = e.fixtures.CLI.EverestExecSkipWizard(ctx, rendered.Everest)
		default:
			res, err = e.fixtures.CLI.EverestExec(ctx, rendered.Everest)
		}
		if res != nil {
			tr.last = res
		}
		return res, err
	}

	if rendered.Wait == nil {
		res, err := action(stepCtx)
		if err != nil {
			return err
		}
		return rendered.Expect.Check(res)
	}

	return e.fixtures.WaitUntil(stepCtx, rendered.Wait.PollSpec(rendered.Name), func(ctx context.Context) (bool, error) {
		res, err := action(ctx)
		if err != nil {
			return false, err
		}
		if err := rendered.Expect.Check(res); err != nil {
			return false, err
		}
		return true, nil
	})
}

// classify maps a step error onto a result: harness faults are errors, everything else is a
// failed expectation.
func classify(err error) Result {
	var (
		spawnErr  *harness.SpawnError
		parseErr  *harness.ParseError
		renderErr *renderError
	)
	switch {
	case errors.As(err, &spawnErr), errors.As(err, &parseErr), errors.As(err, &renderErr):
		return ResultError
	default:
		return ResultFailed
	}
}

// String is used in logs.
func (r ScenarioResult) String() string {
	return fmt.Sprintf("%s %s (%s)", r.Scenario.Name, r.Result, r.Duration.Round(time.Millisecond))
}

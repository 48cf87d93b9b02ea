package scenario

import (
	"context"
	"time"

	"clitest/internal/harness"
)

// Result is the outcome of a scenario or step.
type Result string

const (
	// ResultPassed indicates every expectation held
	ResultPassed Result = "PASSED"
	// ResultFailed indicates a command or expectation failed
	ResultFailed Result = "FAILED"
	// ResultSkipped indicates the scenario or step did not run
	ResultSkipped Result = "SKIPPED"
	// ResultError indicates the harness could not run a step at all
	ResultError Result = "ERROR"
)

// Phase is the section of a scenario a step belongs to.
type Phase string

const (
	PhaseBefore  Phase = "before"
	PhaseSteps   Phase = "steps"
	PhaseCleanup Phase = "cleanup"
)

// Scenario is one YAML test scenario.
type Scenario struct {
	// Name is the unique identifier for the scenario
	Name string `yaml:"name" json:"name"`
	// Description provides human-readable scenario description
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Tags for filtering
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	// Timeout bounds the before and steps phases. Zero uses the run default.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// Skip marks the scenario as skipped without running it
	Skip bool `yaml:"skip,omitempty" json:"skip,omitempty"`
	// Vars are available to command templates as {{ .name }}
	Vars map[string]interface{} `yaml:"vars,omitempty" json:"vars,omitempty"`
	// Before runs first; a failure skips Steps
	Before []Step `yaml:"before,omitempty" json:"before,omitempty"`
	// Steps define the test execution steps
	Steps []Step `yaml:"steps" json:"steps"`
	// Cleanup always runs, even after a failure or timeout
	Cleanup []Step `yaml:"cleanup,omitempty" json:"cleanup,omitempty"`

	// Source is the file the scenario was loaded from.
	Source string `yaml:"-" json:"source,omitempty"`
}

// StepCount returns the number of top-level steps in all phases.
func (s Scenario) StepCount() int {
	return len(s.Before) + len(s.Steps) + len(s.Cleanup)
}

type phaseSteps struct {
	name  Phase
	steps []Step
}

func (s Scenario) phases() []phaseSteps {
	return []phaseSteps{
		{name: PhaseBefore, steps: s.Before},
		{name: PhaseSteps, steps: s.Steps},
		{name: PhaseCleanup, steps: s.Cleanup},
	}
}

// HasTag reports whether the scenario carries tag.
func (s Scenario) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Step is a single action or a named group of steps.
type Step struct {
	// Name is shown in reports and step paths
	Name string `yaml:"name" json:"name"`
	// Run is a full command line, e.g. "kubectl get pods --namespace=mysql"
	Run string `yaml:"run,omitempty" json:"run,omitempty"`
	// Everest holds installer arguments, e.g. "uninstall --assume-yes"
	Everest string `yaml:"everest,omitempty" json:"everest,omitempty"`
	// SkipWizard adds the non-interactive flag to an Everest action
	SkipWizard bool `yaml:"skip_wizard,omitempty" json:"skip_wizard,omitempty"`
	// Steps makes this step a group
	Steps []Step `yaml:"steps,omitempty" json:"steps,omitempty"`
	// Timeout for this specific step, including any waiting
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// Expect defines the expected outcome
	Expect Expectation `yaml:"expect,omitempty" json:"expect,omitempty"`
	// Wait re-runs the action until Expect holds
	Wait *WaitSpec `yaml:"wait,omitempty" json:"wait,omitempty"`
}

// IsGroup reports whether the step only groups other steps.
func (s Step) IsGroup() bool {
	return len(s.Steps) > 0
}

// Expectation defines what result is expected from a step action.
type Expectation struct {
	// Success requires exit code 0 when true (the default) and non-zero when false
	Success *bool `yaml:"success,omitempty" json:"success,omitempty"`
	// StdoutContains must all appear in normalized stdout
	StdoutContains []string `yaml:"stdout_contains,omitempty" json:"stdout_contains,omitempty"`
	// StdoutNotContains must not appear in normalized stdout
	StdoutNotContains []string `yaml:"stdout_not_contains,omitempty" json:"stdout_not_contains,omitempty"`
	// StderrContains must all appear in normalized stderr
	StderrContains []string `yaml:"stderr_contains,omitempty" json:"stderr_contains,omitempty"`
	// StderrNotContains must not appear in normalized stderr
	StderrNotContains []string `yaml:"stderr_not_contains,omitempty" json:"stderr_not_contains,omitempty"`
}

// WantSuccess returns the expected exit status, defaulting to success.
func (e Expectation) WantSuccess() bool {
	return e.Success == nil || *e.Success
}

// WaitSpec configures polling for a step.
type WaitSpec struct {
	Interval    time.Duration `yaml:"interval,omitempty" json:"interval,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Backoff     float64       `yaml:"backoff,omitempty" json:"backoff,omitempty"`
	MaxInterval time.Duration `yaml:"max_interval,omitempty" json:"max_interval,omitempty"`
}

// PollSpec converts the wait settings for the harness poller.
func (w WaitSpec) PollSpec(description string) harness.PollSpec {
	return harness.PollSpec{
		Description:   description,
		Interval:      w.Interval,
		Timeout:       w.Timeout,
		BackoffFactor: w.Backoff,
		MaxInterval:   w.MaxInterval,
	}
}

// RunConfiguration controls one run of the scenario engine.
type RunConfiguration struct {
	// Timeout is the default scenario timeout
	Timeout time.Duration `json:"timeout"`
	// Scenarios restricts the run to these names
	Scenarios []string `json:"scenarios,omitempty"`
	// Tags restricts the run to scenarios carrying at least one of these tags
	Tags []string `json:"tags,omitempty"`
	// Parallel is the number of scenarios run at once
	Parallel int `json:"parallel"`
	// FailFast stops starting new scenarios after the first failure
	FailFast bool `json:"fail_fast"`
	// Verbose streams command output and prints step trees
	Verbose bool `json:"verbose"`
	// Debug enables debug logging
	Debug bool `json:"debug"`
	// ScenarioPath is the file or directory scenarios were loaded from; empty for built-ins
	ScenarioPath string `json:"scenario_path,omitempty"`
	// ReportPath is the file the structured report is written to
	ReportPath string `json:"report_path,omitempty"`
}

// StepResult is the outcome of one top-level step.
type StepResult struct {
	Scenario  string        `json:"scenario"`
	RunID     string        `json:"run_id"`
	Name      string        `json:"name"`
	Phase     Phase         `json:"phase"`
	Result    Result        `json:"result"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	// Command is the last command line run by the step, if any
	Command  string `json:"command,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	// Attempts counts command runs; above 1 only for waiting steps
	Attempts int    `json:"attempts"`
	Error    string `json:"error,omitempty"`
}

// ScenarioResult is the outcome of one scenario run.
type ScenarioResult struct {
	RunID       string               `json:"run_id"`
	Scenario    Scenario             `json:"scenario"`
	Result      Result               `json:"result"`
	StartTime   time.Time            `json:"start_time"`
	EndTime     time.Time            `json:"end_time"`
	Duration    time.Duration        `json:"duration"`
	StepResults []StepResult         `json:"step_results"`
	Steps       []harness.StepRecord `json:"steps,omitempty"`
	// FailedPath is the step path of the first failure
	FailedPath string `json:"failed_path,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SuiteResult is the outcome of a whole run.
type SuiteResult struct {
	StartTime        time.Time        `json:"start_time"`
	EndTime          time.Time        `json:"end_time"`
	Duration         time.Duration    `json:"duration"`
	TotalScenarios   int              `json:"total_scenarios"`
	PassedScenarios  int              `json:"passed_scenarios"`
	FailedScenarios  int              `json:"failed_scenarios"`
	SkippedScenarios int              `json:"skipped_scenarios"`
	ErrorScenarios   int              `json:"error_scenarios"`
	ScenarioResults  []ScenarioResult `json:"scenario_results"`
	Configuration    RunConfiguration `json:"configuration"`
	// Logs holds harness log entries captured during the run
	Logs []LogRecord `json:"logs,omitempty"`
}

// LogRecord is a harness log entry kept in a report.
type LogRecord struct {
	Time      time.Time `json:"time"`
	Level     string    `json:"level"`
	Subsystem string    `json:"subsystem"`
	Message   string    `json:"message"`
	Error     string    `json:"error,omitempty"`
}

// Succeeded reports whether no scenario failed or errored.
func (s SuiteResult) Succeeded() bool {
	return s.FailedScenarios == 0 && s.ErrorScenarios == 0
}

func (s *SuiteResult) count(r ScenarioResult) {
	switch r.Result {
	case ResultPassed:
		s.PassedScenarios++
	case ResultFailed:
		s.FailedScenarios++
	case ResultSkipped:
		s.SkippedScenarios++
	case ResultError:
		s.ErrorScenarios++
	}
}

// Reporter receives progress of a run. Implementations must be safe for concurrent use when
// scenarios run in parallel.
type Reporter interface {
	// ReportStart is called when execution begins
	ReportStart(cfg RunConfiguration)
	// ReportScenarioStart is called when a scenario begins
	ReportScenarioStart(s Scenario, runID string)
	// ReportStepResult is called when a top-level step completes
	ReportStepResult(r StepResult)
	// ReportScenarioResult is called when a scenario completes
	ReportScenarioResult(r ScenarioResult)
	// ReportSuiteResult is called when all scenarios complete
	ReportSuiteResult(r SuiteResult)
	// SetParallelMode enables or disables parallel output buffering
	SetParallelMode(parallel bool)
}

// Runner executes scenarios.
type Runner interface {
	Run(ctx context.Context, cfg RunConfiguration, scenarios []Scenario) (*SuiteResult, error)
}

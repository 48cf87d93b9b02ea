package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"sigs.k8s.io/yaml"

	"clitest/pkg/logging"
)

// ScenarioState tracks the state of a running scenario
type ScenarioState struct {
	Scenario    Scenario     `json:"scenario"`
	RunID       string       `json:"run_id"`
	StartTime   time.Time    `json:"start_time"`
	StepResults []StepResult `json:"step_results"`
	Status      string       `json:"status"` // "running", "completed", "failed"
}

// StructuredReporter captures every event in memory for machine readable reports.
type StructuredReporter struct {
	mu             sync.RWMutex
	config         RunConfiguration
	scenarioStates map[string]*ScenarioState
	suiteResult    *SuiteResult
	currentResults []ScenarioResult
	logs           []LogRecord
}

// NewStructuredReporter creates a reporter that only records.
func NewStructuredReporter() *StructuredReporter {
	return &StructuredReporter{
		scenarioStates: make(map[string]*ScenarioState),
		currentResults: make([]ScenarioResult, 0),
	}
}

// ReportStart is called when test execution begins
func (r *StructuredReporter) ReportStart(cfg RunConfiguration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.config = cfg
	r.suiteResult = &SuiteResult{
		StartTime:       time.Now(),
		ScenarioResults: make([]ScenarioResult, 0),
		Configuration:   cfg,
	}
}

// ReportScenarioStart is called when a scenario begins
func (r *StructuredReporter) ReportScenarioStart(s Scenario, runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.scenarioStates[runID] = &ScenarioState{
		Scenario:    s,
		RunID:       runID,
		StartTime:   time.Now(),
		StepResults: make([]StepResult, 0),
		Status:      "running",
	}
}

// ReportStepResult is called when a step completes
func (r *StructuredReporter) ReportStepResult(sr StepResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state, ok := r.scenarioStates[sr.RunID]; ok {
		state.StepResults = append(state.StepResults, sr)
	}
}

// ReportScenarioResult is called when a scenario completes
func (r *StructuredReporter) ReportScenarioResult(res ScenarioResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state, ok := r.scenarioStates[res.RunID]; ok {
		if res.Result == ResultFailed || res.Result == ResultError {
			state.Status = "failed"
		} else {
			state.Status = "completed"
		}
	}

	r.currentResults = append(r.currentResults, res)
	if r.suiteResult != nil {
		r.suiteResult.ScenarioResults = append(r.suiteResult.ScenarioResults, res)
		r.suiteResult.count(res)
		r.suiteResult.TotalScenarios = len(r.suiteResult.ScenarioResults)
	}
}

// ReportSuiteResult is called when all scenarios complete
func (r *StructuredReporter) ReportSuiteResult(suite SuiteResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.suiteResult = &suite
	for _, state := range r.scenarioStates {
		if state.Status == "running" {
			state.Status = "completed"
		}
	}
}

// CaptureLogs keeps harness log entries at or above level for the report until the returned
// function is called.
func (r *StructuredReporter) CaptureLogs(level logging.LogLevel) (stop func()) {
	return logging.AddHook(func(e logging.LogEntry) {
		if e.Level < level {
			return
		}
		rec := LogRecord{
			Time:      e.Timestamp,
			Level:     e.Level.String(),
			Subsystem: e.Subsystem,
			Message:   e.Message,
		}
		if e.Err != nil {
			rec.Error = e.Err.Error()
		}
		r.mu.Lock()
		r.logs = append(r.logs, rec)
		r.mu.Unlock()
	})
}

// SetParallelMode is a no-op; everything is recorded regardless of ordering.
func (r *StructuredReporter) SetParallelMode(bool) {}

// SuiteResult returns a copy of the latest suite result, or nil before ReportStart.
func (r *StructuredReporter) SuiteResult() *SuiteResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.suiteResult == nil {
		return nil
	}
	result := *r.suiteResult
	result.ScenarioResults = append([]ScenarioResult(nil), r.suiteResult.ScenarioResults...)
	result.Logs = append([]LogRecord(nil), r.logs...)
	return &result
}

// ScenarioStates returns the state of every started scenario keyed by run ID.
func (r *StructuredReporter) ScenarioStates() map[string]*ScenarioState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make(map[string]*ScenarioState, len(r.scenarioStates))
	for id, state := range r.scenarioStates {
		stateCopy := *state
		stateCopy.StepResults = append([]StepResult(nil), state.StepResults...)
		states[id] = &stateCopy
	}
	return states
}

// CurrentResults returns the scenario results reported so far, in completion order.
func (r *StructuredReporter) CurrentResults() []ScenarioResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]ScenarioResult(nil), r.currentResults...)
}

// ResultsAsJSON returns the current results as indented JSON.
func (r *StructuredReporter) ResultsAsJSON() ([]byte, error) {
	result := r.SuiteResult()
	if result == nil {
		return []byte(`{"status": "no_results", "message": "No test results available"}`), nil
	}
	return json.MarshalIndent(result, "", "  ")
}

// ResultsAsYAML returns the current results as YAML with the JSON field names.
func (r *StructuredReporter) ResultsAsYAML() ([]byte, error) {
	data, err := r.ResultsAsJSON()
	if err != nil {
		return nil, err
	}
	return yaml.JSONToYAML(data)
}

// WriteReport saves the results to path. Files ending in .yaml or .yml get YAML, anything
// else JSON. An existing directory gets a timestamped JSON file inside it.
func (r *StructuredReporter) WriteReport(path string) (string, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, fmt.Sprintf("clitest-report-%s.json", time.Now().Format("20060102-150405")))
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = r.ResultsAsYAML()
	default:
		data, err = r.ResultsAsJSON()
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return path, nil
}

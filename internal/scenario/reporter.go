package scenario

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"clitest/internal/harness"
	clistrings "clitest/pkg/strings"
)

// maxOutputChars bounds command output shown on the console; the structured report keeps all.
const maxOutputChars = 1000

// consoleReporter implements the Reporter interface for terminal output
type consoleReporter struct {
	mu              sync.Mutex
	out             io.Writer
	verbose         bool
	debug           bool
	progress        bool
	parallelMode    bool
	scenarioBuffers map[string]string
	spinner         *spinner.Spinner
}

// NewConsoleReporter creates a reporter writing human readable progress to out.
// With progress enabled a spinner shows the running step in sequential, non-verbose runs.
func NewConsoleReporter(out io.Writer, verbose, debug, progress bool) Reporter {
	return &consoleReporter{
		out:             out,
		verbose:         verbose,
		debug:           debug,
		progress:        progress,
		scenarioBuffers: make(map[string]string),
	}
}

// SetParallelMode enables or disables parallel output buffering
func (r *consoleReporter) SetParallelMode(parallel bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.parallelMode = parallel
	if parallel {
		r.scenarioBuffers = make(map[string]string)
	}
}

// ReportStart is called when test execution begins
func (r *consoleReporter) ReportStart(cfg RunConfiguration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.printf("🧪 Starting Everest CLI tests\n")
	if !r.verbose {
		return
	}
	r.printf("\n⚙️  Configuration:\n")
	r.printf("   • Scenarios: %s\n", joinOrDefault(cfg.Scenarios, "all"))
	r.printf("   • Tags: %s\n", joinOrDefault(cfg.Tags, "any"))
	r.printf("   • Parallel workers: %d\n", cfg.Parallel)
	r.printf("   • Fail fast: %t\n", cfg.FailFast)
	r.printf("   • Debug mode: %t\n", r.debug)
	r.printf("   • Timeout: %v\n", cfg.Timeout)
	if cfg.ScenarioPath != "" {
		r.printf("   • Scenario path: %s\n", cfg.ScenarioPath)
	}
	if cfg.ReportPath != "" {
		r.printf("   • Report path: %s\n", cfg.ReportPath)
	}
	r.printf("\n")
}

// ReportScenarioStart is called when a scenario begins
func (r *consoleReporter) ReportScenarioStart(s Scenario, runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.verbose {
		r.printf("🎯 Starting scenario: %s\n", s.Name)
		if s.Description != "" {
			r.printf("   📝 Description: %s\n", s.Description)
		}
		if len(s.Tags) > 0 {
			r.printf("   🏷️  Tags: %s\n", strings.Join(s.Tags, ", "))
		}
		r.printf("   🔑 Run ID: %s\n", runID)
		r.printf("   📋 Steps: %d\n", len(s.Steps))
		if len(s.Before) > 0 {
			r.printf("   🔧 Before steps: %d\n", len(s.Before))
		}
		if len(s.Cleanup) > 0 {
			r.printf("   🧹 Cleanup steps: %d\n", len(s.Cleanup))
		}
		if s.Timeout > 0 {
			r.printf("   ⏱️  Timeout: %v\n", s.Timeout)
		}
		r.printf("\n")
		return
	}

	if r.parallelMode {
		r.scenarioBuffers[s.Name] = fmt.Sprintf("🎯 %s... ", s.Name)
		return
	}
	r.printf("🎯 %s... ", s.Name)
	if r.progress && !s.Skip {
		r.spinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(r.out))
		r.spinner.Start()
	}
}

// ReportStepStarted shows the step currently running.
func (r *consoleReporter) ReportStepStarted(_ string, path []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.spinner != nil:
		r.spinner.Suffix = " " + strings.Join(path, " / ")
	case r.verbose && len(path) > 1:
		r.printf("%s▶ %s\n", strings.Repeat("   ", len(path)), path[len(path)-1])
	}
}

// ReportStepResult is called when a top-level step completes
func (r *consoleReporter) ReportStepResult(sr StepResult) {
	if !r.verbose {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.printf("   %s %s: %s (%v)\n", resultSymbol(sr.Result), sr.Phase, sr.Name, sr.Duration.Round(time.Millisecond))
	if sr.Command != "" {
		r.printf("      🔧 Command: %s\n", sr.Command)
	}
	if sr.ExitCode != nil {
		r.printf("      🔚 Exit code: %d\n", *sr.ExitCode)
	}
	if sr.Attempts > 1 {
		r.printf("      🔄 Attempts: %d\n", sr.Attempts)
	}
	if sr.Error != "" {
		r.printf("      ❌ Error: %s\n", sr.Error)
		r.printOutput(sr, "      ")
	} else if r.debug {
		r.printOutput(sr, "      ")
	}
	r.printf("\n")
}

// ReportScenarioResult is called when a scenario completes
func (r *consoleReporter) ReportScenarioResult(res ScenarioResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	symbol := resultSymbol(res.Result)
	duration := res.Duration.Round(time.Millisecond)

	if r.verbose {
		r.printf("%s Scenario completed: %s (%v)\n", symbol, res.Scenario.Name, duration)
		if res.FailedPath != "" {
			r.printf("   📍 Failed at: %s\n", res.FailedPath)
		}
		if res.Error != "" {
			r.printf("   ❌ Scenario Error: %s\n", res.Error)
		}
		if len(res.Steps) > 0 {
			r.printf("   🌳 Steps:\n")
			r.printTree(res.Steps, "      ")
		}
		r.printf("\n")
		return
	}

	if r.parallelMode {
		start, ok := r.scenarioBuffers[res.Scenario.Name]
		delete(r.scenarioBuffers, res.Scenario.Name)
		if !ok {
			start = fmt.Sprintf("🎯 %s... ", res.Scenario.Name)
		}
		r.printf("%s%s (%v)\n", start, symbol, duration)
	} else {
		if r.spinner != nil {
			r.spinner.Stop()
			r.spinner = nil
		}
		if res.RunID == "" {
			// Never started (fail-fast or cancellation), so no start line was printed.
			r.printf("🎯 %s... ", res.Scenario.Name)
		}
		r.printf("%s (%v)\n", symbol, duration)
	}

	if res.Result == ResultFailed || res.Result == ResultError {
		if res.FailedPath != "" {
			r.printf("   📍 %s\n", res.FailedPath)
		}
		for _, sr := range res.StepResults {
			if sr.Result == ResultFailed || sr.Result == ResultError {
				r.printOutput(sr, "   ")
				break
			}
		}
	}
}

// ReportSuiteResult is called when all scenarios complete
func (r *consoleReporter) ReportSuiteResult(suite SuiteResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.printf("\n🏁 Test Suite Complete\n")
	r.printf("⏱️  Duration: %v\n", suite.Duration.Round(time.Millisecond))

	if len(suite.ScenarioResults) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(r.out)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{
			text.FgHiCyan.Sprint("SCENARIO"),
			text.FgHiCyan.Sprint("RESULT"),
			text.FgHiCyan.Sprint("DURATION"),
			text.FgHiCyan.Sprint("FAILED AT"),
		})
		for _, res := range suite.ScenarioResults {
			t.AppendRow(table.Row{
				res.Scenario.Name,
				resultColor(res.Result).Sprint(string(res.Result)),
				res.Duration.Round(time.Millisecond),
				clistrings.TruncateLine(res.FailedPath, clistrings.DefaultLineMaxLen),
			})
		}
		t.Render()
	}

	r.printf("📊 Results:\n")
	r.printf("   ✅ Passed: %d\n", suite.PassedScenarios)
	if suite.FailedScenarios > 0 {
		r.printf("   ❌ Failed: %d\n", suite.FailedScenarios)
	}
	if suite.ErrorScenarios > 0 {
		r.printf("   💥 Errors: %d\n", suite.ErrorScenarios)
	}
	if suite.SkippedScenarios > 0 {
		r.printf("   ⏭️  Skipped: %d\n", suite.SkippedScenarios)
	}
	r.printf("   📈 Total: %d\n", suite.TotalScenarios)

	successRate := 0.0
	if suite.TotalScenarios > 0 {
		successRate = float64(suite.PassedScenarios) / float64(suite.TotalScenarios) * 100
	}
	r.printf("   📏 Success Rate: %.1f%%\n", successRate)

	if suite.Succeeded() {
		r.printf("\n%s\n", text.FgGreen.Sprint("🎉 All tests passed!"))
	} else {
		r.printf("\n%s\n", text.FgRed.Sprint("💔 Some tests failed"))
	}
}

func (r *consoleReporter) printOutput(sr StepResult, indent string) {
	if sr.Stdout != "" {
		r.printf("%s📤 STDOUT:\n%s\n", indent, indentText(clistrings.TruncateOutput(sr.Stdout, maxOutputChars), indent+"   "))
	}
	if sr.Stderr != "" {
		r.printf("%s📥 STDERR:\n%s\n", indent, indentText(clistrings.TruncateOutput(sr.Stderr, maxOutputChars), indent+"   "))
	}
}

func (r *consoleReporter) printTree(records []harness.StepRecord, indent string) {
	for _, rec := range records {
		symbol := "✅"
		if rec.Status == harness.StepFailed {
			symbol = "❌"
		}
		r.printf("%s%s %s (%v)\n", indent, symbol, rec.Name, rec.Duration.Round(time.Millisecond))
		for _, child := range rec.Children {
			r.printTree([]harness.StepRecord{*child}, indent+"   ")
		}
	}
}

func (r *consoleReporter) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

func indentText(s, indent string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}

func joinOrDefault(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}

// resultSymbol returns an appropriate symbol for the result
func resultSymbol(result Result) string {
	switch result {
	case ResultPassed:
		return "✅"
	case ResultFailed:
		return "❌"
	case ResultSkipped:
		return "⏭️"
	case ResultError:
		return "💥"
	default:
		return "❓"
	}
}

func resultColor(result Result) text.Colors {
	switch result {
	case ResultPassed:
		return text.Colors{text.FgGreen}
	case ResultFailed, ResultError:
		return text.Colors{text.FgRed}
	default:
		return text.Colors{text.FgYellow}
	}
}

// MultiReporter fans every event out to several reporters.
func MultiReporter(reporters ...Reporter) Reporter {
	return multiReporter(reporters)
}

type multiReporter []Reporter

func (m multiReporter) ReportStart(cfg RunConfiguration) {
	for _, r := range m {
		r.ReportStart(cfg)
	}
}

func (m multiReporter) ReportScenarioStart(s Scenario, runID string) {
	for _, r := range m {
		r.ReportScenarioStart(s, runID)
	}
}

func (m multiReporter) ReportStepStarted(runID string, path []string) {
	for _, r := range m {
		if p, ok := r.(StepProgressReporter); ok {
			p.ReportStepStarted(runID, path)
		}
	}
}

func (m multiReporter) ReportStepResult(sr StepResult) {
	for _, r := range m {
		r.ReportStepResult(sr)
	}
}

func (m multiReporter) ReportScenarioResult(res ScenarioResult) {
	for _, r := range m {
		r.ReportScenarioResult(res)
	}
}

func (m multiReporter) ReportSuiteResult(suite SuiteResult) {
	for _, r := range m {
		r.ReportSuiteResult(suite)
	}
}

func (m multiReporter) SetParallelMode(parallel bool) {
	for _, r := range m {
		r.SetParallelMode(parallel)
	}
}

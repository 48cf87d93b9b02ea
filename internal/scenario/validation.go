package scenario

import (
	"fmt"
	"sort"
	"strings"
)

// Problem is one validation failure.
type Problem struct {
	Scenario string
	Source   string
	Location string
	Message  string
}

func (p Problem) String() string {
	var b strings.Builder
	if p.Source != "" {
		b.WriteString(p.Source)
		b.WriteString(": ")
	}
	if p.Scenario != "" {
		fmt.Fprintf(&b, "scenario %q: ", p.Scenario)
	}
	if p.Location != "" {
		b.WriteString(p.Location)
		b.WriteString(": ")
	}
	b.WriteString(p.Message)
	return b.String()
}

// Problems collects every validation failure of a scenario set.
type Problems []Problem

func (p Problems) Error() string {
	if len(p) == 1 {
		return "invalid scenario: " + p[0].String()
	}
	lines := make([]string, 0, len(p)+1)
	lines = append(lines, fmt.Sprintf("%d scenario problems:", len(p)))
	for _, problem := range p {
		lines = append(lines, "  - "+problem.String())
	}
	return strings.Join(lines, "\n")
}

// Validate checks required fields, unique names, and that every step has exactly one action.
// A nil result means the set is valid.
func Validate(scenarios []Scenario) Problems {
	var problems Problems
	seen := make(map[string]string)

	for _, s := range scenarios {
		add := func(location, format string, args ...interface{}) {
			problems = append(problems, Problem{
				Scenario: s.Name,
				Source:   s.Source,
				Location: location,
				Message:  fmt.Sprintf(format, args...),
			})
		}

		if s.Name == "" {
			add("", "name is required")
		} else if prev, dup := seen[s.Name]; dup {
			add("", "duplicate scenario name, also defined in %s", prev)
		} else {
			seen[s.Name] = s.Source
		}

		if len(s.Steps) == 0 {
			add("", "scenario must have at least one step")
		}
		if s.Timeout < 0 {
			add("timeout", "must not be negative")
		}

		for _, phase := range s.phases() {
			for i, step := range phase.steps {
				validateStep(step, fmt.Sprintf("%s[%d]", phase.name, i), add)
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	sort.SliceStable(problems, func(i, j int) bool {
		return problems[i].Source < problems[j].Source
	})
	return problems
}

func validateStep(step Step, location string, add func(location, format string, args ...interface{})) {
	if step.Name != "" {
		location = fmt.Sprintf("%s %q", location, step.Name)
	} else {
		add(location, "step name is required")
	}

	actions := 0
	if step.Run != "" {
		actions++
	}
	if step.Everest != "" {
		actions++
	}
	if step.IsGroup() {
		actions++
	}
	if actions != 1 {
		add(location, "step must have exactly one of run, everest or steps (found %d)", actions)
	}

	if step.SkipWizard && step.Everest == "" {
		add(location, "skip_wizard is only valid with everest")
	}
	if step.Timeout < 0 {
		add(location, "timeout must not be negative")
	}
	if step.IsGroup() && (step.Wait != nil || hasExpectation(step.Expect)) {
		add(location, "a step group cannot have expect or wait")
	}
	if w := step.Wait; w != nil {
		if w.Interval < 0 || w.Timeout < 0 || w.MaxInterval < 0 {
			add(location, "wait durations must not be negative")
		}
		if w.Backoff != 0 && w.Backoff < 1 {
			add(location, "wait backoff must be at least 1")
		}
	}

	for i, child := range step.Steps {
		validateStep(child, fmt.Sprintf("%s.steps[%d]", location, i), add)
	}
}

func hasExpectation(e Expectation) bool {
	return e.Success != nil ||
		len(e.StdoutContains) > 0 ||
		len(e.StdoutNotContains) > 0 ||
		len(e.StderrContains) > 0 ||
		len(e.StderrNotContains) > 0
}

package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestValidate(t *testing.T) {
	valid := func() Scenario {
		return Scenario{
			Name:   "valid",
			Source: "valid.yaml",
			Steps:  []Step{{Name: "nodes", Run: "kubectl get nodes"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(s *Scenario)
		wantMsg string
	}{
		{
			name:    "missing name",
			mutate:  func(s *Scenario) { s.Name = "" },
			wantMsg: "name is required",
		},
		{
			name:    "no steps",
			mutate:  func(s *Scenario) { s.Steps = nil },
			wantMsg: "at least one step",
		},
		{
			name:    "negative timeout",
			mutate:  func(s *Scenario) { s.Timeout = -1 },
			wantMsg: "must not be negative",
		},
		{
			name:    "step without name",
			mutate:  func(s *Scenario) { s.Steps[0].Name = "" },
			wantMsg: "step name is required",
		},
		{
			name:    "two actions",
			mutate:  func(s *Scenario) { s.Steps[0].Everest = "install" },
			wantMsg: "exactly one of run, everest or steps (found 2)",
		},
		{
			name:    "skip wizard without everest",
			mutate:  func(s *Scenario) { s.Steps[0].SkipWizard = true },
			wantMsg: "skip_wizard is only valid with everest",
		},
		{
			name: "group with expectation",
			mutate: func(s *Scenario) {
				s.Steps[0] = Step{
					Name:   "group",
					Steps:  []Step{{Name: "child", Run: "kubectl get ns"}},
					Expect: Expectation{Success: boolPtr(true)},
				}
			},
			wantMsg: "a step group cannot have expect or wait",
		},
		{
			name: "nested step problem",
			mutate: func(s *Scenario) {
				s.Steps[0] = Step{Name: "group", Steps: []Step{{Name: "child"}}}
			},
			wantMsg: `steps[0] "group".steps[0] "child": step must have exactly one of`,
		},
		{
			name:    "bad backoff",
			mutate:  func(s *Scenario) { s.Steps[0].Wait = &WaitSpec{Backoff: 0.5} },
			wantMsg: "wait backoff must be at least 1",
		},
		{
			name:    "negative wait",
			mutate:  func(s *Scenario) { s.Steps[0].Wait = &WaitSpec{Interval: -1} },
			wantMsg: "wait durations must not be negative",
		},
		{
			name:    "cleanup is validated",
			mutate:  func(s *Scenario) { s.Cleanup = []Step{{Name: "empty"}} },
			wantMsg: `cleanup[0] "empty"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)

			problems := Validate([]Scenario{s})
			require.NotEmpty(t, problems)
			assert.Contains(t, problems.Error(), tt.wantMsg)
		})
	}
}

func TestValidate_Valid(t *testing.T) {
	s := Scenario{
		Name: "ok",
		Before: []Step{
			{Name: "precondition", Run: "kubectl get nodes"},
		},
		Steps: []Step{
			{Name: "install", Everest: "install", SkipWizard: true},
			{Name: "verify", Steps: []Step{
				{Name: "pods", Run: "kubectl get pods", Wait: &WaitSpec{Backoff: 2}},
			}},
		},
	}
	assert.Nil(t, Validate([]Scenario{s}))
}

func TestValidate_DuplicateNames(t *testing.T) {
	steps := []Step{{Name: "s", Run: "kubectl version"}}
	problems := Validate([]Scenario{
		{Name: "same", Source: "a.yaml", Steps: steps},
		{Name: "same", Source: "b.yaml", Steps: steps},
	})

	require.Len(t, problems, 1)
	assert.Equal(t, "b.yaml", problems[0].Source)
	assert.Contains(t, problems[0].Message, "also defined in a.yaml")
}

func TestProblems_Error(t *testing.T) {
	problems := Problems{
		{Source: "a.yaml", Scenario: "a", Message: "first"},
		{Source: "b.yaml", Scenario: "b", Location: "steps[0]", Message: "second"},
	}
	assert.Equal(t, "2 scenario problems:\n"+
		"  - a.yaml: scenario \"a\": first\n"+
		"  - b.yaml: scenario \"b\": steps[0]: second", problems.Error())

	assert.Equal(t, "invalid scenario: a.yaml: scenario \"a\": first", problems[:1].Error())
}

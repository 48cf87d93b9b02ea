package scenario

import (
	"fmt"
	"os"
	"strings"

	"clitest/internal/template"
	"clitest/pkg/logging"
)

// TemplateProcessor renders the command lines and expectations of steps against the scenario
// variables, the environment and the run ID.
type TemplateProcessor struct {
	engine *template.Engine
	data   map[string]interface{}
}

// NewTemplateProcessor creates a processor for one scenario run. Variables are reachable as
// {{ .name }}, the environment as {{ .env.NAME }}, and the run as {{ .run_id }} and
// {{ .scenario }}.
func NewTemplateProcessor(s Scenario, runID string) *TemplateProcessor {
	return &TemplateProcessor{
		engine: template.New(),
		data: template.MergeContexts(
			map[string]interface{}{
				"env":      environment(),
				"run_id":   runID,
				"scenario": s.Name,
			},
			s.Vars,
		),
	}
}

// RenderStep returns a copy of step with every command and expectation rendered. Nested
// steps are rendered when they run.
func (p *TemplateProcessor) RenderStep(step Step) (Step, error) {
	out := step
	var err error

	if out.Run, err = p.engine.Render(step.Run, p.data); err != nil {
		return step, fmt.Errorf("run: %w", err)
	}
	if out.Everest, err = p.engine.Render(step.Everest, p.data); err != nil {
		return step, fmt.Errorf("everest: %w", err)
	}

	lists := []*[]string{
		&out.Expect.StdoutContains,
		&out.Expect.StdoutNotContains,
		&out.Expect.StderrContains,
		&out.Expect.StderrNotContains,
	}
	for _, list := range lists {
		if *list == nil {
			continue
		}
		rendered, err := p.engine.Replace(*list, p.data)
		if err != nil {
			return step, fmt.Errorf("expect: %w", err)
		}
		*list = rendered.([]string)
	}

	logging.Debug("Scenario", "Rendered step %q: run=%q everest=%q", step.Name, out.Run, out.Everest)
	return out, nil
}

func environment() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

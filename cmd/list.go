package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"clitest/internal/scenario"
	clistrings "clitest/pkg/strings"
)

// scenarioSummary is one row of the list output.
type scenarioSummary struct {
	Name        string   `json:"name"`
	Tags        []string `json:"tags,omitempty"`
	Steps       int      `json:"steps"`
	Timeout     string   `json:"timeout,omitempty"`
	Skip        bool     `json:"skip,omitempty"`
	Description string   `json:"description,omitempty"`
	Source      string   `json:"source"`
}

func newListCmd() *cobra.Command {
	var (
		scenarioPath string
		tags         []string
		output       string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available test scenarios",
		Long: `List the scenarios found in a file or directory, or the built-in scenarios
when --scenarios is not given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios, err := scenario.LoadPath(scenarioPath)
			if err != nil {
				return err
			}
			return printScenarios(cmd.OutOrStdout(), scenario.Filter(scenarios, nil, tags), output)
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenarios", "", "Scenario file or directory (default: built-in scenarios)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Only list scenarios with this tag (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table, json, yaml)")
	return cmd
}

func summarize(scenarios []scenario.Scenario) []scenarioSummary {
	out := make([]scenarioSummary, 0, len(scenarios))
	for _, s := range scenarios {
		sum := scenarioSummary{
			Name:        s.Name,
			Tags:        s.Tags,
			Steps:       s.StepCount(),
			Skip:        s.Skip,
			Description: s.Description,
			Source:      s.Source,
		}
		if s.Timeout > 0 {
			sum.Timeout = s.Timeout.String()
		}
		out = append(out, sum)
	}
	return out
}

func printScenarios(w io.Writer, scenarios []scenario.Scenario, format string) error {
	summaries := summarize(scenarios)

	switch format {
	case "json":
		data, err := json.MarshalIndent(summaries, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		data, err := yaml.Marshal(summaries)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case "table", "":
	default:
		return fmt.Errorf("unsupported output format %q (expected table, json or yaml)", format)
	}

	if len(summaries) == 0 {
		fmt.Fprintf(w, "%s %s\n", text.FgYellow.Sprint("📋"), text.FgYellow.Sprint("No scenarios found"))
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("NAME"),
		text.FgHiCyan.Sprint("TAGS"),
		text.FgHiCyan.Sprint("STEPS"),
		text.FgHiCyan.Sprint("TIMEOUT"),
		text.FgHiCyan.Sprint("DESCRIPTION"),
	})
	for _, s := range summaries {
		name := s.Name
		if s.Skip {
			name += text.FgYellow.Sprint(" (skip)")
		}
		t.AppendRow(table.Row{name, strings.Join(s.Tags, ", "), s.Steps, s.Timeout, clistrings.TruncateLine(s.Description, clistrings.DefaultLineMaxLen)})
	}
	t.Render()

	fmt.Fprintf(w, "%s %s %s\n",
		text.FgHiBlue.Sprint("Total:"),
		text.FgHiWhite.Sprint(len(summaries)),
		text.FgHiBlue.Sprint("scenarios"))
	return nil
}

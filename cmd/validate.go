package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"clitest/internal/scenario"
)

func newValidateCmd() *cobra.Command {
	var scenarioPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check scenario files for errors",
		Long: `Load every scenario and report unknown fields, missing names, duplicate
names and steps that do not have exactly one action. Exits with code 2 when a
problem is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			scenarios, err := scenario.LoadPath(scenarioPath)
			if err != nil {
				return err
			}

			problems := scenario.Validate(scenarios)
			if len(problems) == 0 {
				fmt.Fprintf(out, "%s %d scenarios are valid\n", text.FgGreen.Sprint("✅"), len(scenarios))
				return nil
			}

			for _, p := range problems {
				fmt.Fprintf(out, "%s %s\n", text.FgRed.Sprint("❌"), p.String())
			}
			return reportedError{err: problems}
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenarios", "", "Scenario file or directory (default: built-in scenarios)")
	return cmd
}

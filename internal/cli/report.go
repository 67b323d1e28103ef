package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dockhand/dockhand/pkg/report"
)

// reportKeep is how many run records survive pruning after an up run.
const reportKeep = 20

// reportCommand creates the report command showing recorded runs.
func (c *CLI) reportCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Show the most recent bootstrap run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := report.NewFileStore("")
			if err != nil {
				return err
			}

			var rep *report.Report
			if len(args) == 1 {
				rep, err = store.Get(args[0])
			} else {
				rep, err = store.Latest()
			}
			if err != nil {
				return err
			}

			if asJSON {
				return printReportJSON(rep)
			}
			printReport(rep)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw report JSON")
	cmd.AddCommand(c.reportListCommand())

	return cmd
}

// reportListCommand creates the "report list" subcommand.
func (c *CLI) reportListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded bootstrap runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := report.NewFileStore("")
			if err != nil {
				return err
			}
			reports, err := store.List()
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				printInfo("No runs recorded yet")
				return nil
			}

			for _, rep := range reports {
				icon, style := outcomeGlyph(rep.Outcome)
				line := style.Render(icon) + " " + rep.StartedAt.Format("2006-01-02 15:04") +
					"  " + StyleValue.Render(rep.Outcome)
				if rep.RepoURL != "" {
					line += "  " + StyleDim.Render(rep.RepoURL)
				}
				line += "  " + StyleDim.Render(rep.ID)
				fmt.Println(line)
			}
			return nil
		},
	}
}

// printReport pretty-prints one run record.
func printReport(rep *report.Report) {
	printNewline()
	fmt.Println(StyleTitle.Render("Bootstrap run"))
	printNewline()
	printKeyValue("ID", rep.ID)
	printKeyValue("Host", rep.Host)
	if rep.Distro != "" {
		printKeyValue("Distro", rep.Distro)
	}
	if rep.User != "" {
		printKeyValue("User", rep.User)
	}
	if rep.RepoURL != "" {
		printKeyValue("Repository", rep.RepoURL)
	}
	if rep.Branch != "" {
		printKeyValue("Branch", rep.Branch)
	}
	printKeyValue("Started", rep.StartedAt.Format(time.RFC1123))
	printKeyValue("Elapsed", rep.Elapsed().Round(time.Millisecond).String())
	printKeyValue("Outcome", rep.Outcome)
	if rep.DryRun {
		printKeyValue("Mode", "dry-run")
	}

	printNewline()
	for _, res := range rep.Steps {
		printStepResult(res)
	}
	for _, notice := range rep.Notices {
		printInfo("%s", notice)
	}
	if rep.Error != "" {
		printNewline()
		printError("%s", rep.Error)
	}
}

// printReportJSON dumps the stored form.
func printReportJSON(rep *report.Report) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// outcomeGlyph maps a run outcome to its icon and color.
func outcomeGlyph(outcome string) (string, lipgloss.Style) {
	switch outcome {
	case report.OutcomeSuccess:
		return iconSuccess, styleIconSuccess
	case report.OutcomeInterrupted:
		return iconWarning, styleIconWarning
	default:
		return iconError, styleIconError
	}
}

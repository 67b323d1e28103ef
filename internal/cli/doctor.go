package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dockhand/dockhand/pkg/doctor"
	"github.com/dockhand/dockhand/pkg/errors"
)

// doctorCommand creates the doctor command verifying the installed stack.
func (c *CLI) doctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Verify the Docker engine, compose plugin, and git",
		Long: `Check that the provisioned stack actually works: the Docker engine
answers over its API, the compose plugin responds, and git is on the
path. Each failed check names the package that fixes it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			doc := &doctor.Doctor{Runner: c.runner(), Logger: c.Logger}

			spinner := newSpinner(ctx, "Checking the installed stack...")
			spinner.Start()
			checks := doc.Run(ctx)
			if spinner.Cancelled() {
				spinner.Stop()
				return ctx.Err()
			}

			failed := 0
			for _, chk := range checks {
				if !chk.Ok() {
					failed++
				}
			}
			if failed == 0 {
				spinner.StopWithSuccess("All checks passed")
			} else {
				spinner.StopWithError(fmt.Sprintf("%d of %d checks failed", failed, len(checks)))
			}

			for _, chk := range checks {
				switch {
				case chk.Ok() && chk.Detail != "":
					printSuccess("%s  %s", chk.Name, StyleDim.Render(chk.Detail))
				case chk.Ok():
					printSuccess("%s", chk.Name)
				default:
					printError("%s  %s", chk.Name, StyleDim.Render(chk.Err.Error()))
					printDetail("install %s or rerun dockhand up", chk.Hint)
				}
			}

			if failed > 0 {
				return errors.New(errors.ErrCodeVerifyFailed, "%d of %d checks failed", failed, len(checks))
			}
			return nil
		},
	}
}

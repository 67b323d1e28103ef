package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dockhand/dockhand/pkg/config"
	"github.com/dockhand/dockhand/pkg/errors"
	"github.com/dockhand/dockhand/pkg/pipeline"
	"github.com/dockhand/dockhand/pkg/repourl"
)

// planOpts holds the command-line flags for the plan command.
type planOpts struct {
	dot   bool
	graph string
}

// planCommand creates the plan command showing the step sequence without
// executing it.
func (c *CLI) planCommand() *cobra.Command {
	opts := planOpts{}

	cmd := &cobra.Command{
		Use:   "plan [repo-url]",
		Short: "Show the bootstrap steps without running them",
		Long: `Print the bootstrap step sequence in execution order.

--dot emits the step graph as Graphviz DOT on stdout; --graph renders it
straight to an SVG or PNG file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			return c.runPlan(cmd.Context(), arg, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dot, "dot", false, "emit Graphviz DOT on stdout")
	cmd.Flags().StringVar(&opts.graph, "graph", "", "render the step graph to this file (.svg or .png)")

	return cmd
}

func (c *CLI) runPlan(ctx context.Context, arg string, opts planOpts) error {
	steps := pipeline.Plan()

	if opts.dot {
		fmt.Print(pipeline.ToDOT(steps))
		return nil
	}
	if opts.graph != "" {
		return renderPlanGraph(ctx, steps, opts.graph)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	printNewline()
	fmt.Println(StyleTitle.Render("Bootstrap plan"))
	printNewline()
	if raw := config.ResolveRepoURL(arg, cfg); raw != "" {
		if repo, err := repourl.Normalize(raw); err == nil {
			printKeyValue("Repository", repo.HTTPS)
		}
	}
	for i, step := range steps {
		line := StyleDim.Render(fmt.Sprintf("%2d.", i+1)) + " " + step.Title
		if len(step.Needs) > 0 {
			line += "  " + StyleDim.Render("after "+strings.Join(step.Needs, ", "))
		}
		fmt.Println(line)
	}
	printNewline()
	printNextStep("Run it", "dockhand up")
	return nil
}

// renderPlanGraph renders the DOT graph in the format named by the file
// extension.
func renderPlanGraph(ctx context.Context, steps []pipeline.Step, path string) error {
	dot := pipeline.ToDOT(steps)

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		data, err = pipeline.RenderSVG(ctx, dot)
	case ".png":
		data, err = pipeline.RenderPNG(ctx, dot)
	default:
		return errors.New(errors.ErrCodeUnsupported, "unsupported graph format %q: use .svg or .png", filepath.Ext(path))
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	printSuccess("Step graph rendered")
	printFile(path)
	return nil
}

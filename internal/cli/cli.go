// Package cli implements the dockhand command-line interface.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dockhand/dockhand/pkg/buildinfo"
	"github.com/dockhand/dockhand/pkg/config"
	"github.com/dockhand/dockhand/pkg/errors"
	"github.com/dockhand/dockhand/pkg/execx"
	"github.com/dockhand/dockhand/pkg/repourl"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "dockhand"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Runner executes host commands. Nil means the real system runner;
	// tests inject a fake.
	Runner execx.Runner
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   appName,
		Short: "Dockhand bootstraps an Ubuntu host for a Dockerized app stack",
		Long: `Dockhand prepares a fresh Ubuntu host for running a containerized
application stack: OS packages, the Docker engine, WireGuard tooling, a UFW
firewall baseline, and a clone of the deployment repository.

Every action is gated by a probe (binary present, directory cloned, group
membership, firewall active), so running it again on a provisioned host
changes nothing.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				c.SetLogLevel(log.DebugLevel)
			}
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	// Register all subcommands
	root.AddCommand(c.upCommand())
	root.AddCommand(c.planCommand())
	root.AddCommand(c.repoCommand())
	root.AddCommand(c.keysCommand())
	root.AddCommand(c.doctorCommand())
	root.AddCommand(c.reportCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Shared Helpers
// =============================================================================

// runner returns the executor commands run through.
func (c *CLI) runner() execx.Runner {
	if c.Runner != nil {
		return c.Runner
	}
	return execx.System{Logger: c.Logger}
}

// loadConfig loads and validates the configuration file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveRepo applies the repository URL priority chain (argument, then
// DOCKHAND_REPO_URL, then config file) and normalizes the winner. On an
// interactive terminal an empty chain falls back to a prompt; otherwise
// the empty URL is fatal. Unrecognized URLs pass through with a warning.
func (c *CLI) resolveRepo(arg string, cfg *config.Config) (repourl.Repo, error) {
	raw := config.ResolveRepoURL(arg, cfg)
	if raw == "" && stdinIsTTY() {
		line, err := promptLine("Repository URL")
		if err != nil {
			return repourl.Repo{}, err
		}
		raw = line
	}
	if raw == "" {
		return repourl.Repo{}, errors.New(errors.ErrCodeInvalidURL,
			"no repository URL given: pass one as an argument, set %s, or add [repo] url to %s", config.EnvRepoURL, configHint())
	}

	repo, err := repourl.Normalize(raw)
	if err != nil {
		return repourl.Repo{}, err
	}
	if !repo.Recognized() {
		c.Logger.Warnf("%q is not a recognized GitHub URL; using it verbatim", raw)
	}
	return repo, nil
}

// configHint names the config file location for error messages.
func configHint() string {
	path, err := config.Path()
	if err != nil {
		return "the config file"
	}
	return path
}

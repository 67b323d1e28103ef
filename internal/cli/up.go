package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dockhand/dockhand/pkg/apt"
	"github.com/dockhand/dockhand/pkg/config"
	"github.com/dockhand/dockhand/pkg/doctor"
	"github.com/dockhand/dockhand/pkg/firewall"
	"github.com/dockhand/dockhand/pkg/gitrepo"
	"github.com/dockhand/dockhand/pkg/host"
	"github.com/dockhand/dockhand/pkg/pipeline"
	"github.com/dockhand/dockhand/pkg/report"
	"github.com/dockhand/dockhand/pkg/repourl"
	"github.com/dockhand/dockhand/pkg/wireguard"
)

// upOpts holds the command-line flags for the up command.
type upOpts struct {
	user          string
	skipClone     bool
	skipFirewall  bool
	skipWireGuard bool
	assumeYes     bool
	dryRun        bool
	wgKeys        bool
}

// upCommand creates the up command running the full bootstrap pipeline.
func (c *CLI) upCommand() *cobra.Command {
	opts := upOpts{}

	cmd := &cobra.Command{
		Use:   "up [repo-url]",
		Short: "Provision this host end to end",
		Long: `Run the full bootstrap sequence: platform gate, OS packages, Docker
engine, docker group membership, firewall baseline, WireGuard tooling,
repository clone (HTTPS first, SSH key provisioning as the fallback),
default branch checkout, and a final verification of the installed stack.

The repository URL is taken from the argument, the DOCKHAND_REPO_URL
environment variable, or the config file, in that order. Every step is
gated by a probe, so rerunning up on a provisioned host changes nothing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			return c.runUp(cmd.Context(), arg, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.user, "user", "u", "", "provision for this user instead of the invoking one")
	cmd.Flags().BoolVar(&opts.skipClone, "skip-clone", false, "skip the repository clone and branch checkout")
	cmd.Flags().BoolVar(&opts.skipFirewall, "skip-firewall", false, "leave the firewall alone")
	cmd.Flags().BoolVar(&opts.skipWireGuard, "skip-wireguard", false, "skip WireGuard tooling and keys")
	cmd.Flags().BoolVarP(&opts.assumeYes, "yes", "y", false, "answer yes to confirmation prompts")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "log mutating commands instead of running them")
	cmd.Flags().BoolVar(&opts.wgKeys, "wg-keys", false, "write the WireGuard keypair under /etc/wireguard")

	return cmd
}

func (c *CLI) runUp(ctx context.Context, arg string, opts upOpts) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	account, err := host.ResolveAccount(opts.user)
	if err != nil {
		return err
	}
	info := host.Detect()

	if !host.RunningAsRoot() {
		c.Logger.Warn("not running as root; commands that need it will go through sudo")
	}

	var repo repourl.Repo
	if !opts.skipClone {
		repo, err = c.resolveRepo(arg, cfg)
		if err != nil {
			return err
		}
	}

	prompter := newConsolePrompter()
	bc := c.newBootstrapContext(cfg, info, account, repo, opts, prompter)

	printPlanSummary(info, account, repo, opts)
	if !opts.assumeYes && !opts.dryRun && stdinIsTTY() {
		ok, err := prompter.Confirm("Provision this host?")
		if err != nil {
			return err
		}
		if !ok {
			printInfo("Nothing done")
			return nil
		}
	}

	started := time.Now()
	runner := &pipeline.Runner{Logger: c.Logger}
	results, runErr := runner.Execute(ctx, pipeline.Plan(), bc)

	rep := buildReport(bc, started, results, runErr, ctx.Err() != nil)
	c.saveReport(rep)
	printRunSummary(rep)

	return runErr
}

// newBootstrapContext wires the collaborators the pipeline steps drive.
func (c *CLI) newBootstrapContext(cfg *config.Config, info host.Info, account host.Account, repo repourl.Repo, opts upOpts, prompter *consolePrompter) *pipeline.Context {
	runner := c.runner()
	return &pipeline.Context{
		Host:    info,
		Account: account,
		Repo:    repo,
		Config:  *cfg,
		Options: pipeline.Options{
			DryRun:        opts.dryRun,
			SkipClone:     opts.skipClone,
			SkipFirewall:  opts.skipFirewall,
			SkipWireGuard: opts.skipWireGuard,
		},
		Installer: &apt.Installer{Runner: runner, Logger: c.Logger, Info: info, DryRun: opts.dryRun},
		Firewall:  &firewall.Configurator{Runner: runner, Logger: c.Logger, Rules: cfg.Firewall.Allow, DryRun: opts.dryRun},
		Fetcher:   &gitrepo.Fetcher{Runner: runner, Logger: c.Logger, Account: account, DryRun: opts.dryRun},
		Keys:      c.newKeyProvisioner(cfg, account, prompter),
		WireGuard: &wireguard.Setup{Logger: c.Logger, WriteKeys: opts.wgKeys, DryRun: opts.dryRun},
		Doctor:    &doctor.Doctor{Runner: runner, Logger: c.Logger},
	}
}

// printPlanSummary shows what the run will touch before anything executes.
func printPlanSummary(info host.Info, account host.Account, repo repourl.Repo, opts upOpts) {
	printNewline()
	fmt.Println(StyleTitle.Render("Bootstrap plan"))
	printNewline()
	printKeyValue("Host", hostLabel(info))
	printKeyValue("User", account.Username)
	if repo.Raw != "" {
		printKeyValue("Repository", repo.HTTPS)
		printKeyValue("Target", repo.TargetDir(account.Home))
	}
	if opts.dryRun {
		printKeyValue("Mode", "dry-run")
	}
	printNewline()
	for i, step := range pipeline.Plan() {
		printDetail("%d. %s", i+1, step.Title)
	}
	printNewline()
}

// hostLabel names the host for summaries, e.g. "Ubuntu 24.04 LTS (web-1)".
func hostLabel(info host.Info) string {
	distro := info.PrettyName
	if distro == "" {
		distro = info.OS
	}
	name, err := os.Hostname()
	if err != nil || name == "" {
		return distro
	}
	return fmt.Sprintf("%s (%s)", distro, name)
}

// buildReport turns the run into the record the report command reads.
func buildReport(bc *pipeline.Context, started time.Time, results []pipeline.StepResult, runErr error, interrupted bool) *report.Report {
	hostname, _ := os.Hostname()
	rep := &report.Report{
		ID:         report.NewID(),
		Host:       hostname,
		Distro:     bc.Host.PrettyName,
		User:       bc.Account.Username,
		RepoURL:    bc.Repo.Raw,
		Branch:     bc.Branch,
		DryRun:     bc.Options.DryRun,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Steps:      results,
		Outcome:    report.OutcomeSuccess,
		Notices:    bc.Notices,
	}
	switch {
	case interrupted:
		rep.Outcome = report.OutcomeInterrupted
	case runErr != nil:
		rep.Outcome = report.OutcomeFailed
	}
	if runErr != nil {
		rep.Error = runErr.Error()
	}
	return rep
}

// saveReport persists the run record; failing to save is only a warning.
func (c *CLI) saveReport(rep *report.Report) {
	store, err := report.NewFileStore("")
	if err != nil {
		c.Logger.Warnf("run report not saved: %v", err)
		return
	}
	if err := store.Save(rep); err != nil {
		c.Logger.Warnf("run report not saved: %v", err)
		return
	}
	if err := store.Prune(reportKeep); err != nil {
		c.Logger.Debugf("prune old reports: %v", err)
	}
}

// printRunSummary prints the per-step outcome table and any follow-ups.
func printRunSummary(rep *report.Report) {
	printNewline()
	for _, res := range rep.Steps {
		printStepResult(res)
	}
	printNewline()

	elapsed := rep.Elapsed().Round(time.Millisecond)
	switch rep.Outcome {
	case report.OutcomeSuccess:
		printSuccess("Host ready (%s)", elapsed)
	case report.OutcomeInterrupted:
		printWarning("Interrupted after %s", elapsed)
	default:
		printError("Bootstrap failed after %s", elapsed)
	}

	for _, notice := range rep.Notices {
		printInfo("%s", notice)
	}

	if rep.Outcome == report.OutcomeSuccess && !rep.DryRun {
		printNewline()
		printNextStep("Check the stack any time", "dockhand doctor")
	}
}

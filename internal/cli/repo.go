package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dockhand/dockhand/pkg/gitrepo"
	"github.com/dockhand/dockhand/pkg/host"
	"github.com/dockhand/dockhand/pkg/repourl"
)

// repoCommand creates the repository command group.
func (c *CLI) repoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Inspect and sync the deployment repository",
	}

	cmd.AddCommand(c.repoURLCommand())
	cmd.AddCommand(c.repoSyncCommand())

	return cmd
}

// repoURLCommand creates the "repo url" subcommand.
func (c *CLI) repoURLCommand() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "url <repo-url>",
		Short: "Show how a repository URL is normalized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := repourl.Normalize(args[0])
			if err != nil {
				return err
			}

			if repo.Recognized() {
				printKeyValue("Owner", repo.Owner)
				printKeyValue("Name", repo.Name)
			} else {
				printWarning("Not a recognized GitHub URL; it will be used verbatim")
			}
			printKeyValue("HTTPS", repo.HTTPS)
			printKeyValue("SSH", repo.SSH)
			if account, err := host.ResolveAccount(username); err == nil {
				printKeyValue("Target", repo.TargetDir(account.Home))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "user", "u", "", "resolve the target directory for this user")

	return cmd
}

// repoSyncCommand creates the "repo sync" subcommand: the clone/fetch and
// branch-resolve portion of the bootstrap without the rest.
func (c *CLI) repoSyncCommand() *cobra.Command {
	var (
		username string
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "sync [repo-url]",
		Short: "Clone or refresh the repository and check out its default branch",
		Long: `Bring the repository to its provisioned state: an existing clone is
fetched with pruning, a missing one is cloned over HTTPS with SSH key
provisioning as the fallback. The remote default branch is then checked
out and fast-forwarded.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			return c.runRepoSync(cmd.Context(), arg, username, dryRun)
		},
	}

	cmd.Flags().StringVarP(&username, "user", "u", "", "sync on behalf of this user")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log commands instead of running them")

	return cmd
}

func (c *CLI) runRepoSync(ctx context.Context, arg, username string, dryRun bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	account, err := host.ResolveAccount(username)
	if err != nil {
		return err
	}
	repo, err := c.resolveRepo(arg, cfg)
	if err != nil {
		return err
	}

	fetcher := &gitrepo.Fetcher{Runner: c.runner(), Logger: c.Logger, Account: account, DryRun: dryRun}
	keys := c.newKeyProvisioner(cfg, account, newConsolePrompter())

	prog := newProgress(c.Logger)
	if err := fetcher.Ensure(ctx, repo, keys); err != nil {
		return err
	}
	if dryRun {
		prog.done(fmt.Sprintf("Dry-run complete for %s", repo.Slug()))
		return nil
	}

	target := repo.TargetDir(account.Home)
	branch, err := fetcher.DefaultBranch(ctx, target)
	if err != nil {
		return err
	}
	if err := fetcher.Checkout(ctx, target, branch); err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Synced %s on %s", repo.Slug(), branch))
	printFile(target)
	return nil
}

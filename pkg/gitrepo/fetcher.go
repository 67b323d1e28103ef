// Package gitrepo acquires the target repository: clone on first run,
// fetch on re-runs, with an HTTPS to SSH fallback for private remotes.
//
// All git commands run as the invoking user so the working tree belongs
// to the human, not to root.
package gitrepo

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/dockhand/dockhand/pkg/errors"
	"github.com/dockhand/dockhand/pkg/execx"
	"github.com/dockhand/dockhand/pkg/host"
	"github.com/dockhand/dockhand/pkg/repourl"
)

// Provisioner sets up SSH access to the remote. The fetcher invokes it
// after a failed HTTPS clone, before retrying over SSH.
type Provisioner interface {
	Provision(ctx context.Context) error
}

// Fetcher clones or refreshes the target repository.
type Fetcher struct {
	Runner  execx.Runner
	Logger  *log.Logger
	Account host.Account
	DryRun  bool

	// RunAs wraps commands to run as the account. Defaults to
	// host.AsUser; tests replace it with the identity function.
	RunAs func(host.Account, execx.Command) execx.Command
}

// Ensure brings the repository to the PRESENT state. An existing clone is
// fetched with pruning and never re-cloned. A missing clone is attempted
// over HTTPS first; if that fails the provisioner is given a chance to
// set up SSH access and the clone is retried with the SSH URL. A second
// failure is fatal.
func (f *Fetcher) Ensure(ctx context.Context, repo repourl.Repo, prov Provisioner) error {
	if err := errors.ValidateRepoName(repo.Name); err != nil {
		return err
	}
	target := repo.TargetDir(f.Account.Home)

	if host.DirPresence(filepath.Join(target, ".git")) == host.Present {
		f.log().Info("repository already cloned, fetching", "dir", target)
		if _, err := f.run(ctx, f.git(target, "fetch", "--all", "--prune")); err != nil {
			return errors.Wrap(errors.ErrCodeCloneFailed, err, "failed to fetch %s", repo.Slug())
		}
		return nil
	}

	f.log().Info("cloning repository", "url", repo.HTTPS, "dir", target)
	res, err := f.runRaw(ctx, f.clone(repo.HTTPS, target))
	if err != nil {
		return err
	}
	if res.Ok() {
		return nil
	}
	f.log().Warn("https clone failed, provisioning ssh access",
		"exit", res.ExitCode, "stderr", strings.TrimSpace(res.Stderr))

	if err := prov.Provision(ctx); err != nil {
		return err
	}

	f.log().Info("retrying clone over ssh", "url", repo.SSH)
	res, err = f.runRaw(ctx, f.clone(repo.SSH, target))
	if err != nil {
		return err
	}
	if !res.Ok() {
		return errors.New(errors.ErrCodeCloneFailed,
			"ssh clone failed for %s (exit %d): %s", repo.Slug(), res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}

func (f *Fetcher) clone(url, target string) execx.Command {
	return f.runAs(execx.Command{Name: "git", Args: []string{"clone", url, target}})
}

// git builds a repository-scoped git command. Using -C instead of a
// working directory keeps the command self-contained under sudo.
func (f *Fetcher) git(dir string, args ...string) execx.Command {
	return f.runAs(execx.Command{Name: "git", Args: append([]string{"-C", dir}, args...)})
}

// run executes a mutating command, or just logs it in dry-run mode; a
// non-zero exit becomes an error.
func (f *Fetcher) run(ctx context.Context, cmd execx.Command) (execx.Result, error) {
	if f.DryRun {
		f.log().Info("dry-run", "cmd", cmd.String())
		return execx.Result{}, nil
	}
	return execx.RunChecked(ctx, f.Runner, cmd)
}

// runRaw executes a command whose exit code the caller inspects.
func (f *Fetcher) runRaw(ctx context.Context, cmd execx.Command) (execx.Result, error) {
	if f.DryRun {
		f.log().Info("dry-run", "cmd", cmd.String())
		return execx.Result{}, nil
	}
	return f.Runner.Run(ctx, cmd)
}

func (f *Fetcher) runAs(cmd execx.Command) execx.Command {
	if f.RunAs != nil {
		return f.RunAs(f.Account, cmd)
	}
	return host.AsUser(f.Account, cmd)
}

func (f *Fetcher) log() *log.Logger {
	if f.Logger == nil {
		return log.Default()
	}
	return f.Logger
}

package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dockhand/dockhand/pkg/host"
)

// Plan returns the bootstrap steps in execution order. The list is the
// same whether it is executed or rendered; skip flags take effect at
// run time so a skipped step still appears in the plan.
func Plan() []Step {
	return []Step{
		{ID: "platform", Title: "Check platform", Run: runPlatform},
		{ID: "packages", Title: "Install core packages", Needs: []string{"platform"}, Run: runPackages},
		{ID: "docker", Title: "Install Docker engine", Needs: []string{"packages"}, Run: runDocker},
		{ID: "docker-group", Title: "Grant docker group membership", Needs: []string{"docker"}, Run: runDockerGroup},
		{ID: "firewall", Title: "Apply firewall baseline", Needs: []string{"platform"}, Run: runFirewall},
		{ID: "wireguard", Title: "Prepare WireGuard", Needs: []string{"packages"}, Run: runWireGuard},
		{ID: "clone", Title: "Fetch repository", Needs: []string{"packages"}, Run: runClone},
		{ID: "branch", Title: "Check out default branch", Needs: []string{"clone"}, Run: runBranch},
		{ID: "verify", Title: "Verify installation", Needs: []string{"docker", "clone"}, Run: runVerify},
	}
}

func runPlatform(_ context.Context, bc *Context) error {
	if err := bc.Host.CheckPlatform(); err != nil {
		return err
	}
	if !bc.Host.SupportedDistro() {
		return Warnf("distribution %q is not ubuntu or debian; proceeding anyway", bc.Host.ID)
	}
	return nil
}

func runPackages(ctx context.Context, bc *Context) error {
	return bc.Installer.EnsureCore(ctx, bc.Config.Packages.Core)
}

func runDocker(ctx context.Context, bc *Context) error {
	return bc.Installer.EnsureDocker(ctx)
}

func runDockerGroup(ctx context.Context, bc *Context) error {
	added, err := bc.Installer.EnsureDockerGroup(ctx, bc.Account)
	if err != nil {
		return err
	}
	if added {
		bc.Notices = append(bc.Notices,
			fmt.Sprintf("%s was added to the docker group; log out and back in for it to take effect", bc.Account.Username))
	}
	return nil
}

func runFirewall(ctx context.Context, bc *Context) error {
	if bc.Options.SkipFirewall {
		return Skipf("skipped by --skip-firewall")
	}
	return bc.Firewall.EnsureBaseline(ctx)
}

func runWireGuard(ctx context.Context, bc *Context) error {
	if bc.Options.SkipWireGuard {
		return Skipf("skipped by --skip-wireguard")
	}
	if !bc.Config.WireGuard.Enabled {
		return Skipf("disabled in configuration")
	}
	if err := bc.Installer.EnsureWireGuardTools(ctx); err != nil {
		return err
	}

	dirErr := bc.WireGuard.EnsureConfigDir()
	kp, err := bc.WireGuard.Ensure()
	if err != nil {
		return err
	}
	bc.Notices = append(bc.Notices, "WireGuard public key: "+kp.PublicKey)

	if dirErr != nil {
		return Warnf("wireguard directory not prepared: %v", dirErr)
	}
	return nil
}

func runClone(ctx context.Context, bc *Context) error {
	if bc.Options.SkipClone {
		return Skipf("skipped by --skip-clone")
	}
	if bc.Repo.Raw == "" {
		return Skipf("no repository configured")
	}
	return bc.Fetcher.Ensure(ctx, bc.Repo, bc.Keys)
}

func runBranch(ctx context.Context, bc *Context) error {
	if bc.Options.SkipClone {
		return Skipf("skipped by --skip-clone")
	}
	if bc.Repo.Raw == "" {
		return Skipf("no repository configured")
	}

	target := bc.Repo.TargetDir(bc.Account.Home)
	// A dry run leaves nothing on disk to resolve branches against.
	if bc.Options.DryRun && host.DirPresence(filepath.Join(target, ".git")) != host.Present {
		return Skipf("dry-run: repository not on disk")
	}

	branch, err := bc.Fetcher.DefaultBranch(ctx, target)
	if err != nil {
		return err
	}
	bc.Branch = branch
	return bc.Fetcher.Checkout(ctx, target, branch)
}

func runVerify(ctx context.Context, bc *Context) error {
	if bc.Options.DryRun {
		return Skipf("dry-run")
	}
	return bc.Doctor.Verify(ctx)
}

// Package apt installs the OS packages the stack needs: core tooling,
// the Docker engine from Docker's own apt repository, and WireGuard.
//
// Every install is gated by a probe so re-running the tool is safe. All
// apt-get invocations are non-interactive and commands that need root are
// elevated through sudo when the process is unprivileged.
package apt

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/dockhand/dockhand/pkg/errors"
	"github.com/dockhand/dockhand/pkg/execx"
	"github.com/dockhand/dockhand/pkg/host"
)

const (
	dockerKeyringPath = "/etc/apt/keyrings/docker.gpg"
	dockerListPath    = "/etc/apt/sources.list.d/docker.list"
	dockerGPGURL      = "https://download.docker.com/linux/%s/gpg"
)

// dockerPackages is the engine package set, installed together in one
// transaction.
var dockerPackages = []string{"docker-ce", "docker-ce-cli", "containerd.io", "docker-compose-plugin"}

// corePackageProbes maps package names to the binary that proves their
// presence. Packages not listed here are probed through dpkg.
var corePackageProbes = map[string]string{
	"git":   "git",
	"curl":  "curl",
	"gnupg": "gpg",
}

// Installer drives apt-based provisioning. The zero value is not usable:
// Runner must be set.
type Installer struct {
	Runner execx.Runner
	Logger *log.Logger
	Info   host.Info
	DryRun bool

	// Elevate wraps commands that need root. Defaults to host.AsRoot;
	// tests replace it with the identity function.
	Elevate func(execx.Command) execx.Command

	// GroupProbe overrides group membership detection in tests. Nil uses
	// the system login database.
	GroupProbe func(host.Account, string) host.Presence

	updated bool
}

// EnsureCore installs the listed packages, skipping any that are already
// present. A single apt-get update precedes the first install.
func (i *Installer) EnsureCore(ctx context.Context, packages []string) error {
	var missing []string
	for _, pkg := range packages {
		if err := errors.ValidateAptPackageName(pkg); err != nil {
			return err
		}
		if i.packagePresence(ctx, pkg) == host.Present {
			i.log().Debug("package already present", "pkg", pkg)
			continue
		}
		missing = append(missing, pkg)
	}

	if len(missing) == 0 {
		i.log().Info("core packages already installed")
		return nil
	}

	if err := i.ensureUpdated(ctx); err != nil {
		return err
	}

	i.log().Info("installing packages", "packages", strings.Join(missing, " "))
	args := append([]string{"install", "-y"}, missing...)
	if _, err := i.run(ctx, i.apt(args...)); err != nil {
		return errors.Wrap(errors.ErrCodePackageInstall, err,
			"failed to install %s", strings.Join(missing, " "))
	}
	return nil
}

// EnsureDocker installs the Docker engine from Docker's apt repository.
// The signing key and source entry are put in place before the engine
// packages are requested.
func (i *Installer) EnsureDocker(ctx context.Context) error {
	if host.BinaryPresence(i.Runner, "docker") == host.Present {
		i.log().Info("docker already installed")
		return nil
	}

	if err := i.addDockerSource(ctx); err != nil {
		return err
	}

	// The new source entry must be visible to apt before the install.
	if _, err := i.run(ctx, i.apt("update")); err != nil {
		return errors.Wrap(errors.ErrCodePackageInstall, err, "apt-get update failed after adding the docker source")
	}
	i.updated = true

	args := append([]string{"install", "-y"}, dockerPackages...)
	if _, err := i.run(ctx, i.apt(args...)); err != nil {
		return errors.Wrap(errors.ErrCodePackageInstall, err, "failed to install the docker engine")
	}

	i.log().Info("docker engine installed", "packages", strings.Join(dockerPackages, " "))
	return nil
}

// EnsureWireGuardTools installs the wireguard userspace tooling, gated on
// the wg binary.
func (i *Installer) EnsureWireGuardTools(ctx context.Context) error {
	if host.BinaryPresence(i.Runner, "wg") == host.Present {
		i.log().Info("wireguard tools already installed")
		return nil
	}

	if err := i.ensureUpdated(ctx); err != nil {
		return err
	}

	if _, err := i.run(ctx, i.apt("install", "-y", "wireguard", "wireguard-tools")); err != nil {
		return errors.Wrap(errors.ErrCodePackageInstall, err, "failed to install wireguard tools")
	}

	i.log().Info("wireguard tools installed")
	return nil
}

// EnsureDockerGroup adds the account to the docker group. The returned
// bool is true when membership was just granted, which means the user
// must log in again before it takes effect.
func (i *Installer) EnsureDockerGroup(ctx context.Context, account host.Account) (bool, error) {
	switch i.groupProbe(account, "docker") {
	case host.Present:
		i.log().Info("user already in docker group", "user", account.Username)
		return false, nil
	case host.Unknown:
		i.log().Debug("docker group membership unknown, adding anyway", "user", account.Username)
	}

	cmd := i.elevate(execx.Command{Name: "usermod", Args: []string{"-aG", "docker", account.Username}})
	if _, err := i.run(ctx, cmd); err != nil {
		return false, errors.Wrap(errors.ErrCodePackageInstall, err,
			"failed to add %s to the docker group", account.Username)
	}

	i.log().Info("added user to docker group", "user", account.Username)
	return true, nil
}

// addDockerSource fetches Docker's signing key into the keyring directory
// and writes the apt source entry for the host's architecture and
// distribution codename.
func (i *Installer) addDockerSource(ctx context.Context) error {
	distro := "ubuntu"
	if i.Info.ID == "debian" {
		distro = "debian"
	}

	codename := i.Info.Codename
	if codename == "" {
		return errors.New(errors.ErrCodePackageInstall,
			"cannot determine the distribution codename for the docker apt source")
	}

	mkdir := i.elevate(execx.Command{Name: "install", Args: []string{"-m", "0755", "-d", "/etc/apt/keyrings"}})
	if _, err := i.run(ctx, mkdir); err != nil {
		return errors.Wrap(errors.ErrCodePackageInstall, err, "failed to create the apt keyring directory")
	}

	keyURL := fmt.Sprintf(dockerGPGURL, distro)
	fetch := fmt.Sprintf("curl -fsSL %s | gpg --dearmor --yes -o %s", keyURL, dockerKeyringPath)
	if _, err := i.run(ctx, i.elevate(execx.Command{Name: "sh", Args: []string{"-c", fetch}})); err != nil {
		return errors.Wrap(errors.ErrCodePackageInstall, err, "failed to fetch the docker signing key")
	}
	if _, err := i.run(ctx, i.elevate(execx.Command{Name: "chmod", Args: []string{"a+r", dockerKeyringPath}})); err != nil {
		i.log().Warn("could not relax keyring permissions", "path", dockerKeyringPath, "err", err)
	}

	arch, err := i.architecture(ctx)
	if err != nil {
		return err
	}

	line := fmt.Sprintf("deb [arch=%s signed-by=%s] https://download.docker.com/linux/%s %s stable\n",
		arch, dockerKeyringPath, distro, codename)
	i.log().Debug("docker apt source", "entry", strings.TrimSpace(line))

	write := i.elevate(execx.Command{Name: "tee", Args: []string{dockerListPath}, Stdin: strings.NewReader(line)})
	if _, err := i.run(ctx, write); err != nil {
		return errors.Wrap(errors.ErrCodePackageInstall, err, "failed to write the docker apt source")
	}
	return nil
}

func (i *Installer) architecture(ctx context.Context) (string, error) {
	res, err := execx.RunChecked(ctx, i.Runner, execx.Command{Name: "dpkg", Args: []string{"--print-architecture"}})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodePackageInstall, err, "cannot determine the dpkg architecture")
	}
	return strings.TrimSpace(res.Stdout), nil
}

// packagePresence probes a package: by its binary when one is known, via
// dpkg otherwise.
func (i *Installer) packagePresence(ctx context.Context, pkg string) host.Presence {
	if bin, ok := corePackageProbes[pkg]; ok {
		return host.BinaryPresence(i.Runner, bin)
	}
	return i.dpkgInstalled(ctx, pkg)
}

func (i *Installer) dpkgInstalled(ctx context.Context, pkg string) host.Presence {
	res, err := i.Runner.Run(ctx, execx.Command{Name: "dpkg", Args: []string{"-s", pkg}})
	switch {
	case err != nil:
		return host.Unknown
	case res.Ok():
		return host.Present
	default:
		return host.Absent
	}
}

// ensureUpdated runs apt-get update once per invocation.
func (i *Installer) ensureUpdated(ctx context.Context) error {
	if i.updated {
		return nil
	}
	if _, err := i.run(ctx, i.apt("update")); err != nil {
		return errors.Wrap(errors.ErrCodePackageInstall, err, "apt-get update failed")
	}
	i.updated = true
	return nil
}

// apt builds an elevated, non-interactive apt-get command.
func (i *Installer) apt(args ...string) execx.Command {
	return i.elevate(execx.Command{
		Name: "apt-get",
		Args: args,
		Env:  []string{"DEBIAN_FRONTEND=noninteractive"},
	})
}

// run executes a mutating command, or just logs it in dry-run mode.
func (i *Installer) run(ctx context.Context, cmd execx.Command) (execx.Result, error) {
	if i.DryRun {
		i.log().Info("dry-run", "cmd", cmd.String())
		return execx.Result{}, nil
	}
	return execx.RunChecked(ctx, i.Runner, cmd)
}

func (i *Installer) elevate(cmd execx.Command) execx.Command {
	if i.Elevate != nil {
		return i.Elevate(cmd)
	}
	return host.AsRoot(cmd)
}

func (i *Installer) groupProbe(a host.Account, group string) host.Presence {
	if i.GroupProbe != nil {
		return i.GroupProbe(a, group)
	}
	return host.GroupMembership(a, group)
}

func (i *Installer) log() *log.Logger {
	if i.Logger == nil {
		return log.Default()
	}
	return i.Logger
}

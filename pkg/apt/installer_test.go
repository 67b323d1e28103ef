package apt

import (
	"context"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dockhand/dockhand/pkg/errors"
	"github.com/dockhand/dockhand/pkg/execx"
	"github.com/dockhand/dockhand/pkg/host"
)

func newInstaller(fake *execx.Fake) *Installer {
	return &Installer{
		Runner:  fake,
		Logger:  log.New(io.Discard),
		Info:    host.Info{OS: "linux", ID: "ubuntu", Codename: "noble"},
		Elevate: func(c execx.Command) execx.Command { return c },
	}
}

func corePackages() []string {
	return []string{"git", "curl", "ca-certificates", "gnupg"}
}

func TestEnsureCoreSkipsWhenPresent(t *testing.T) {
	fake := &execx.Fake{Paths: map[string]string{
		"git":  "/usr/bin/git",
		"curl": "/usr/bin/curl",
		"gpg":  "/usr/bin/gpg",
	}}
	// dpkg -s ca-certificates succeeds by default, reporting it installed.

	inst := newInstaller(fake)
	require.NoError(t, inst.EnsureCore(context.Background(), corePackages()))

	assert.False(t, fake.Ran("apt-get"), "nothing should be installed: %v", fake.CommandLines())
}

func TestEnsureCoreInstallsMissing(t *testing.T) {
	fake := &execx.Fake{Paths: map[string]string{
		"git":  "/usr/bin/git",
		"curl": "/usr/bin/curl",
	}}
	fake.Stub("dpkg -s ca-certificates", execx.Result{ExitCode: 1})

	inst := newInstaller(fake)
	require.NoError(t, inst.EnsureCore(context.Background(), corePackages()))

	lines := fake.CommandLines()
	update := slices.Index(lines, "apt-get update")
	install := slices.Index(lines, "apt-get install -y ca-certificates gnupg")
	require.GreaterOrEqual(t, update, 0, "apt-get update must run: %v", lines)
	require.GreaterOrEqual(t, install, 0, "install must run: %v", lines)
	assert.Less(t, update, install, "update must precede the install")

	// apt runs non-interactively.
	for _, call := range fake.Calls {
		if call.Name == "apt-get" {
			assert.Contains(t, call.Env, "DEBIAN_FRONTEND=noninteractive")
		}
	}
}

func TestEnsureCoreRejectsBadPackageName(t *testing.T) {
	inst := newInstaller(&execx.Fake{})

	err := inst.EnsureCore(context.Background(), []string{"git;rm -rf"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestEnsureDockerSkipsWhenPresent(t *testing.T) {
	fake := &execx.Fake{Paths: map[string]string{"docker": "/usr/bin/docker"}}

	inst := newInstaller(fake)
	require.NoError(t, inst.EnsureDocker(context.Background()))

	assert.Empty(t, fake.Calls, "no commands expected: %v", fake.CommandLines())
}

func TestEnsureDockerInstallFlow(t *testing.T) {
	fake := &execx.Fake{}
	fake.Stub("dpkg --print-architecture", execx.Result{Stdout: "amd64\n"})

	inst := newInstaller(fake)
	require.NoError(t, inst.EnsureDocker(context.Background()))

	lines := fake.CommandLines()

	keyring := slices.IndexFunc(lines, func(s string) bool {
		return strings.HasPrefix(s, "sh -c curl -fsSL https://download.docker.com/linux/ubuntu/gpg")
	})
	source := slices.Index(lines, "tee /etc/apt/sources.list.d/docker.list")
	update := slices.Index(lines, "apt-get update")
	install := slices.Index(lines, "apt-get install -y docker-ce docker-ce-cli containerd.io docker-compose-plugin")

	require.GreaterOrEqual(t, keyring, 0, "signing key fetch must run: %v", lines)
	require.GreaterOrEqual(t, source, 0, "source entry must be written: %v", lines)
	require.GreaterOrEqual(t, update, 0, "apt-get update must run: %v", lines)
	require.GreaterOrEqual(t, install, 0, "engine install must run: %v", lines)

	// Source entry strictly before update, update strictly before install.
	assert.Less(t, keyring, source)
	assert.Less(t, source, update)
	assert.Less(t, update, install)

	// The written source line carries the probed architecture and the
	// distribution codename.
	tee := fake.Calls[source]
	require.NotNil(t, tee.Stdin)
	entry, err := io.ReadAll(tee.Stdin)
	require.NoError(t, err)
	assert.Contains(t, string(entry), "arch=amd64")
	assert.Contains(t, string(entry), "signed-by=/etc/apt/keyrings/docker.gpg")
	assert.Contains(t, string(entry), "https://download.docker.com/linux/ubuntu noble stable")
}

func TestEnsureDockerDebianSource(t *testing.T) {
	fake := &execx.Fake{}
	fake.Stub("dpkg --print-architecture", execx.Result{Stdout: "arm64\n"})

	inst := newInstaller(fake)
	inst.Info = host.Info{OS: "linux", ID: "debian", Codename: "bookworm"}
	require.NoError(t, inst.EnsureDocker(context.Background()))

	source := slices.Index(fake.CommandLines(), "tee /etc/apt/sources.list.d/docker.list")
	require.GreaterOrEqual(t, source, 0)

	entry, err := io.ReadAll(fake.Calls[source].Stdin)
	require.NoError(t, err)
	assert.Contains(t, string(entry), "https://download.docker.com/linux/debian bookworm stable")
}

func TestEnsureDockerNeedsCodename(t *testing.T) {
	inst := newInstaller(&execx.Fake{})
	inst.Info = host.Info{OS: "linux", ID: "ubuntu"}

	err := inst.EnsureDocker(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodePackageInstall))
}

func TestEnsureWireGuardTools(t *testing.T) {
	t.Run("skips when wg present", func(t *testing.T) {
		fake := &execx.Fake{Paths: map[string]string{"wg": "/usr/bin/wg"}}

		inst := newInstaller(fake)
		require.NoError(t, inst.EnsureWireGuardTools(context.Background()))
		assert.Empty(t, fake.Calls)
	})

	t.Run("installs when absent", func(t *testing.T) {
		fake := &execx.Fake{}

		inst := newInstaller(fake)
		require.NoError(t, inst.EnsureWireGuardTools(context.Background()))

		assert.True(t, fake.Ran("apt-get update"))
		assert.True(t, fake.Ran("apt-get install -y wireguard wireguard-tools"))
	})
}

func TestAptUpdateRunsOnce(t *testing.T) {
	fake := &execx.Fake{}
	fake.Stub("dpkg -s", execx.Result{ExitCode: 1})

	inst := newInstaller(fake)
	require.NoError(t, inst.EnsureCore(context.Background(), []string{"ca-certificates"}))
	require.NoError(t, inst.EnsureWireGuardTools(context.Background()))

	updates := 0
	for _, line := range fake.CommandLines() {
		if line == "apt-get update" {
			updates++
		}
	}
	assert.Equal(t, 1, updates, "apt-get update should run once: %v", fake.CommandLines())
}

func TestEnsureDockerGroup(t *testing.T) {
	t.Run("adds missing member", func(t *testing.T) {
		fake := &execx.Fake{}

		inst := newInstaller(fake)
		inst.GroupProbe = func(host.Account, string) host.Presence { return host.Absent }

		added, err := inst.EnsureDockerGroup(context.Background(), host.Account{Username: "deploy"})
		require.NoError(t, err)
		assert.True(t, added, "relogin notice must be surfaced for a new member")
		assert.True(t, fake.Ran("usermod -aG docker deploy"))
	})

	t.Run("skips existing member", func(t *testing.T) {
		fake := &execx.Fake{}

		inst := newInstaller(fake)
		inst.GroupProbe = func(host.Account, string) host.Presence { return host.Present }

		added, err := inst.EnsureDockerGroup(context.Background(), host.Account{Username: "deploy"})
		require.NoError(t, err)
		assert.False(t, added)
		assert.Empty(t, fake.Calls)
	})

	t.Run("unknown membership adds anyway", func(t *testing.T) {
		fake := &execx.Fake{}

		inst := newInstaller(fake)
		inst.GroupProbe = func(host.Account, string) host.Presence { return host.Unknown }

		added, err := inst.EnsureDockerGroup(context.Background(), host.Account{Username: "deploy"})
		require.NoError(t, err)
		assert.True(t, added)
		assert.True(t, fake.Ran("usermod -aG docker deploy"))
	})
}

func TestDryRunExecutesNothing(t *testing.T) {
	fake := &execx.Fake{}
	fake.Stub("dpkg -s", execx.Result{ExitCode: 1})

	inst := newInstaller(fake)
	inst.DryRun = true
	require.NoError(t, inst.EnsureCore(context.Background(), []string{"ca-certificates"}))

	// Probes may run, mutations may not.
	assert.False(t, fake.Ran("apt-get"), "dry-run must not invoke apt-get: %v", fake.CommandLines())
}

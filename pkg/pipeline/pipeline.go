// Package pipeline sequences the bootstrap steps and records their
// outcomes.
//
// Steps are plain values executed strictly in declaration order,
// aborting on the first failure, the way a shell script under set -e
// behaves. Needs edges between steps feed the plan graph; they never
// reorder execution.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dockhand/dockhand/pkg/apt"
	"github.com/dockhand/dockhand/pkg/config"
	"github.com/dockhand/dockhand/pkg/doctor"
	"github.com/dockhand/dockhand/pkg/firewall"
	"github.com/dockhand/dockhand/pkg/gitrepo"
	"github.com/dockhand/dockhand/pkg/host"
	"github.com/dockhand/dockhand/pkg/repourl"
	"github.com/dockhand/dockhand/pkg/sshkey"
	"github.com/dockhand/dockhand/pkg/wireguard"
)

// Status classifies a completed step.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusWarned  Status = "warned"
	StatusFailed  Status = "failed"
)

// Step is one unit of the bootstrap sequence.
type Step struct {
	ID    string
	Title string

	// Needs names the steps this one builds on. The edges are drawn in
	// the plan graph; execution order is the declared order.
	Needs []string

	Run func(ctx context.Context, bc *Context) error
}

// StepResult records one executed step.
type StepResult struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Status   Status        `json:"status"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Options mirrors the up command's execution flags.
type Options struct {
	DryRun        bool
	SkipClone     bool
	SkipFirewall  bool
	SkipWireGuard bool
}

// Context carries the resolved host facts and the collaborators the
// steps drive.
type Context struct {
	Host    host.Info
	Account host.Account
	Repo    repourl.Repo
	Config  config.Config
	Options Options

	Installer *apt.Installer
	Firewall  *firewall.Configurator
	Fetcher   *gitrepo.Fetcher
	Keys      *sshkey.Provisioner
	WireGuard *wireguard.Setup
	Doctor    *doctor.Doctor

	// Branch is set by the branch step once resolved.
	Branch string

	// Notices collects follow-ups to surface after the run, such as the
	// re-login required for fresh group membership.
	Notices []string
}

// Skipf marks a step as intentionally not run.
func Skipf(format string, args ...any) error {
	return &skipError{reason: fmt.Sprintf(format, args...)}
}

// Warnf completes a step with a caveat instead of failing it.
func Warnf(format string, args ...any) error {
	return &warnError{reason: fmt.Sprintf(format, args...)}
}

type skipError struct{ reason string }

func (e *skipError) Error() string { return e.reason }

type warnError struct{ reason string }

func (e *warnError) Error() string { return e.reason }

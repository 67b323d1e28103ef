// Package firewall applies the UFW baseline: default-deny inbound with
// SSH explicitly allowed.
//
// The key safety invariant is conditional enablement. An active firewall
// carries an administrator's policy and is never touched, reset, or
// disabled; only an inactive firewall is configured and enabled.
package firewall

import (
	"context"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/dockhand/dockhand/pkg/errors"
	"github.com/dockhand/dockhand/pkg/execx"
	"github.com/dockhand/dockhand/pkg/host"
)

// sshRule is always allowed before enabling, whatever the configured
// rule set says. Enabling a firewall that blocks SSH would cut off the
// session doing the provisioning.
const sshRule = "OpenSSH"

// State describes the firewall's activity.
type State int

const (
	// StateUnknown means the probe could not determine the state.
	StateUnknown State = iota
	// StateInactive means UFW is installed but not enforcing.
	StateInactive
	// StateActive means UFW is enforcing a policy.
	StateActive
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// Configurator applies the firewall baseline through a Runner.
type Configurator struct {
	Runner execx.Runner
	Logger *log.Logger
	Rules  []string // allow rules, e.g. "OpenSSH" or "443/tcp"
	DryRun bool

	// Elevate wraps commands that need root. Defaults to host.AsRoot.
	Elevate func(execx.Command) execx.Command
}

// EnsureBaseline enables the default-deny baseline when the firewall is
// inactive. Active firewalls are preserved untouched; an undeterminable
// state is also left alone, erring on the side of the no-clobber rule.
func (c *Configurator) EnsureBaseline(ctx context.Context) error {
	if host.BinaryPresence(c.Runner, "ufw") != host.Present {
		c.log().Warn("ufw is not installed, skipping the firewall baseline")
		return nil
	}

	switch c.Status(ctx) {
	case StateActive:
		c.log().Info("firewall already active, existing policy preserved")
		return nil
	case StateUnknown:
		c.log().Warn("cannot determine the firewall state, leaving it untouched")
		return nil
	}

	if _, err := c.run(ctx, c.ufw("default", "deny", "incoming")); err != nil {
		return errors.Wrap(errors.ErrCodeFirewall, err, "failed to set the default inbound policy")
	}

	for _, rule := range c.allowRules() {
		if _, err := c.run(ctx, c.ufw("allow", rule)); err != nil {
			return errors.Wrap(errors.ErrCodeFirewall, err, "failed to allow %s", rule)
		}
	}

	if _, err := c.run(ctx, c.ufw("--force", "enable")); err != nil {
		return errors.Wrap(errors.ErrCodeFirewall, err, "failed to enable the firewall")
	}

	c.log().Info("firewall enabled", "allowed", strings.Join(c.allowRules(), " "))
	return nil
}

// Status probes the firewall state. UFW prints "Status: active" or
// "Status: inactive" and needs root to answer at all.
func (c *Configurator) Status(ctx context.Context) State {
	res, err := c.Runner.Run(ctx, c.elevate(execx.Command{Name: "ufw", Args: []string{"status"}}))
	if err != nil || !res.Ok() {
		return StateUnknown
	}
	switch {
	case strings.Contains(res.Combined, "Status: active"):
		return StateActive
	case strings.Contains(res.Combined, "Status: inactive"):
		return StateInactive
	default:
		return StateUnknown
	}
}

// allowRules returns the configured rules with the SSH rule guaranteed
// present, first.
func (c *Configurator) allowRules() []string {
	if slices.Contains(c.Rules, sshRule) {
		return c.Rules
	}
	return append([]string{sshRule}, c.Rules...)
}

func (c *Configurator) ufw(args ...string) execx.Command {
	return c.elevate(execx.Command{Name: "ufw", Args: args})
}

func (c *Configurator) run(ctx context.Context, cmd execx.Command) (execx.Result, error) {
	if c.DryRun {
		c.log().Info("dry-run", "cmd", cmd.String())
		return execx.Result{}, nil
	}
	return execx.RunChecked(ctx, c.Runner, cmd)
}

func (c *Configurator) elevate(cmd execx.Command) execx.Command {
	if c.Elevate != nil {
		return c.Elevate(cmd)
	}
	return host.AsRoot(cmd)
}

func (c *Configurator) log() *log.Logger {
	if c.Logger == nil {
		return log.Default()
	}
	return c.Logger
}

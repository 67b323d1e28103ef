// Package doctor verifies the provisioned host: Docker engine
// reachability, the compose plugin, and git. Each check carries the
// package name to point at when it fails.
package doctor

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"

	"github.com/dockhand/dockhand/pkg/errors"
	"github.com/dockhand/dockhand/pkg/execx"
)

// Engine is the slice of the Docker client the checks need.
type Engine interface {
	Ping(ctx context.Context) (types.Ping, error)
	ServerVersion(ctx context.Context) (types.Version, error)
	Close() error
}

// Check is one verification result.
type Check struct {
	Name   string // what was checked
	Hint   string // package to install or repair when Err is set
	Detail string // version information on success
	Err    error
}

// Ok reports whether the check passed.
func (c Check) Ok() bool { return c.Err == nil }

// Doctor runs the post-install verification suite.
type Doctor struct {
	Runner execx.Runner
	Logger *log.Logger

	// NewEngine opens the engine client. Nil uses the official client
	// configured from the environment.
	NewEngine func() (Engine, error)
}

// Run executes every check and returns all results, failed or not.
func (d *Doctor) Run(ctx context.Context) []Check {
	return []Check{
		d.checkEngine(ctx),
		d.checkCompose(ctx),
		d.checkGit(ctx),
	}
}

// Verify runs the suite and turns the first failure into a fatal error
// that names the package to fix.
func (d *Doctor) Verify(ctx context.Context) error {
	for _, c := range d.Run(ctx) {
		if c.Err != nil {
			return errors.Wrap(errors.ErrCodeVerifyFailed, c.Err, "%s check failed; is %s installed?", c.Name, c.Hint)
		}
		d.log().Info("verified", "check", c.Name, "detail", c.Detail)
	}
	return nil
}

func (d *Doctor) checkEngine(ctx context.Context) Check {
	c := Check{Name: "docker engine", Hint: "docker-ce"}

	engine, err := d.newEngine()
	if err != nil {
		c.Err = err
		return c
	}
	defer engine.Close()

	if _, err := engine.Ping(ctx); err != nil {
		c.Err = err
		return c
	}
	v, err := engine.ServerVersion(ctx)
	if err != nil {
		c.Err = err
		return c
	}
	c.Detail = fmt.Sprintf("server %s (api %s)", v.Version, v.APIVersion)
	return c
}

func (d *Doctor) checkCompose(ctx context.Context) Check {
	c := Check{Name: "docker compose", Hint: "docker-compose-plugin"}
	res, err := execx.RunChecked(ctx, d.Runner, execx.Command{Name: "docker", Args: []string{"compose", "version"}})
	if err != nil {
		c.Err = err
		return c
	}
	c.Detail = firstLine(res.Combined)
	return c
}

func (d *Doctor) checkGit(ctx context.Context) Check {
	c := Check{Name: "git", Hint: "git"}
	res, err := execx.RunChecked(ctx, d.Runner, execx.Command{Name: "git", Args: []string{"--version"}})
	if err != nil {
		c.Err = err
		return c
	}
	c.Detail = firstLine(res.Combined)
	return c
}

func (d *Doctor) newEngine() (Engine, error) {
	if d.NewEngine != nil {
		return d.NewEngine()
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	return cli, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

func (d *Doctor) log() *log.Logger {
	if d.Logger == nil {
		return log.Default()
	}
	return d.Logger
}

// Package execx runs external commands behind a small Runner interface.
//
// Provisioning steps shell out to system tools (apt-get, ufw, git, ssh).
// Routing every invocation through a Runner keeps the steps testable: the
// System runner executes on the host, while the Fake runner replays
// scripted results without touching anything.
//
// A non-zero exit status is not an error. Run returns an error only when
// the command could not be started or the context was canceled; callers
// inspect Result.ExitCode when the exit status matters. Some probes treat
// particular non-zero exits as success (ssh -T against git hosts exits 1
// even when authentication works), so the distinction is load-bearing.
package execx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	dherrors "github.com/dockhand/dockhand/pkg/errors"
	"github.com/dockhand/dockhand/pkg/observability"
)

// Command describes one external command invocation.
type Command struct {
	Name  string    // Binary name or path
	Args  []string  // Arguments, not including the binary
	Dir   string    // Working directory (optional)
	Env   []string  // Extra KEY=VALUE entries appended to the inherited environment
	Stdin io.Reader // Standard input (optional)
}

// String returns the command line for logging and error messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result holds the outcome of a completed command.
type Result struct {
	Stdout   string        // Captured standard output
	Stderr   string        // Captured standard error
	Combined string        // Stdout and stderr interleaved in arrival order
	ExitCode int           // Process exit status
	Duration time.Duration // Wall-clock run time
}

// Ok reports whether the command exited zero.
func (r Result) Ok() bool {
	return r.ExitCode == 0
}

// Runner executes external commands.
type Runner interface {
	// Run executes the command and captures its output. A non-zero exit
	// status is reported via Result.ExitCode, not via the error.
	Run(ctx context.Context, cmd Command) (Result, error)

	// LookPath searches for an executable in the runner's PATH.
	LookPath(name string) (string, error)
}

// RunChecked executes cmd via r and converts a non-zero exit status into
// a CommandError carrying the captured stderr.
func RunChecked(ctx context.Context, r Runner, cmd Command) (Result, error) {
	res, err := r.Run(ctx, cmd)
	if err != nil {
		return res, err
	}
	if res.ExitCode != 0 {
		return res, &dherrors.CommandError{
			Command:  cmd.String(),
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
		}
	}
	return res, nil
}

// System executes commands on the local host.
type System struct {
	// Logger receives a debug line per invocation when set.
	Logger *log.Logger
}

// Run implements Runner.
func (s System) Run(ctx context.Context, cmd Command) (Result, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	if cmd.Dir != "" {
		c.Dir = cmd.Dir
	}
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	if cmd.Stdin != nil {
		c.Stdin = cmd.Stdin
	}

	var stdout, stderr bytes.Buffer
	combined := &syncBuffer{}
	// Stdout and stderr are drained on separate goroutines, so the shared
	// combined buffer must be locked.
	c.Stdout = io.MultiWriter(&stdout, combined)
	c.Stderr = io.MultiWriter(&stderr, combined)

	observability.Commands().OnCommandStart(ctx, cmd.String())
	start := time.Now()
	runErr := c.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Combined: combined.String(),
		Duration: time.Since(start),
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			if ctx.Err() != nil {
				s.finishRun(ctx, cmd, res, ctx.Err())
				return res, ctx.Err()
			}
			s.finishRun(ctx, cmd, res, nil)
			return res, nil
		}
		s.finishRun(ctx, cmd, res, runErr)
		return res, runErr
	}

	s.finishRun(ctx, cmd, res, nil)
	return res, nil
}

// LookPath implements Runner.
func (s System) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (s System) finishRun(ctx context.Context, cmd Command, res Result, err error) {
	observability.Commands().OnCommandComplete(ctx, cmd.String(), res.ExitCode, res.Duration, err)
	if s.Logger == nil {
		return
	}
	s.Logger.Debug("exec", "cmd", cmd.String(), "exit", res.ExitCode, "duration", res.Duration)
}

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

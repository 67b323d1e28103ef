// Package observability provides hooks for instrumenting pipeline and
// command execution.
//
// The package keeps the core free of hard dependencies on any metrics
// or tracing backend: hook interfaces with no-op defaults are called
// from the libraries, and main registers real implementations at
// startup when instrumentation is wanted.
//
// Register hooks once, before any pipeline runs:
//
//	observability.SetStepHooks(&myStepHooks{})
//	observability.SetCommandHooks(&myCommandHooks{})
//
// Libraries emit events through the registry:
//
//	observability.Steps().OnStepStart(ctx, id, title)
//	// ... run the step ...
//	observability.Steps().OnStepComplete(ctx, id, status, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// StepHooks receives events from bootstrap pipeline steps.
type StepHooks interface {
	OnStepStart(ctx context.Context, id, title string)
	OnStepComplete(ctx context.Context, id, status string, duration time.Duration, err error)
}

// CommandHooks receives events from external command execution.
type CommandHooks interface {
	OnCommandStart(ctx context.Context, command string)
	OnCommandComplete(ctx context.Context, command string, exitCode int, duration time.Duration, err error)
}

// NoopStepHooks is a no-op implementation of StepHooks.
type NoopStepHooks struct{}

func (NoopStepHooks) OnStepStart(context.Context, string, string)                           {}
func (NoopStepHooks) OnStepComplete(context.Context, string, string, time.Duration, error) {}

// NoopCommandHooks is a no-op implementation of CommandHooks.
type NoopCommandHooks struct{}

func (NoopCommandHooks) OnCommandStart(context.Context, string)                           {}
func (NoopCommandHooks) OnCommandComplete(context.Context, string, int, time.Duration, error) {}

var (
	stepHooks    StepHooks    = NoopStepHooks{}
	commandHooks CommandHooks = NoopCommandHooks{}
	hooksMu      sync.RWMutex
)

// SetStepHooks registers custom step hooks. Call once at startup,
// before any pipeline runs.
func SetStepHooks(h StepHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		stepHooks = h
	}
}

// SetCommandHooks registers custom command hooks. Call once at startup,
// before any commands run.
func SetCommandHooks(h CommandHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		commandHooks = h
	}
}

// Steps returns the registered step hooks.
func Steps() StepHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return stepHooks
}

// Commands returns the registered command hooks.
func Commands() CommandHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return commandHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	stepHooks = NoopStepHooks{}
	commandHooks = NoopCommandHooks{}
}

package execx

import (
	"context"
	"os/exec"
	"strings"
	"sync"
)

// Fake is a scripted Runner for tests. Stubs are matched against the
// command line in registration order; the first match wins. Every
// invocation is recorded in Calls so tests can assert what ran.
type Fake struct {
	mu    sync.Mutex
	stubs []fakeStub

	// Calls records every command passed to Run, in order.
	Calls []Command

	// Paths maps binary names to LookPath results. Names not present
	// resolve as missing.
	Paths map[string]string
}

type fakeStub struct {
	prefix string
	res    Result
	err    error
	once   bool
	used   bool
}

// Stub registers a result for command lines starting with prefix.
func (f *Fake) Stub(prefix string, res Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stubs = append(f.stubs, fakeStub{prefix: prefix, res: res})
}

// StubOnce registers a result that is consumed by the first matching
// command, letting tests script sequences of differing outcomes.
func (f *Fake) StubOnce(prefix string, res Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stubs = append(f.stubs, fakeStub{prefix: prefix, res: res, once: true})
}

// StubErr registers a run error for command lines starting with prefix.
func (f *Fake) StubErr(prefix string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stubs = append(f.stubs, fakeStub{prefix: prefix, err: err})
}

// Run implements Runner. Unmatched commands succeed with empty output,
// which keeps happy-path tests from having to stub every invocation.
func (f *Fake) Run(_ context.Context, cmd Command) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, cmd)

	line := cmd.String()
	for i := range f.stubs {
		s := &f.stubs[i]
		if s.once && s.used {
			continue
		}
		if strings.HasPrefix(line, s.prefix) {
			s.used = true
			return s.res, s.err
		}
	}
	return Result{}, nil
}

// LookPath implements Runner.
func (f *Fake) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.Paths[name]; ok {
		return p, nil
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

// CommandLines returns the recorded calls rendered as command lines.
func (f *Fake) CommandLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	lines := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		lines[i] = c.String()
	}
	return lines
}

// Ran reports whether any recorded command line starts with prefix.
func (f *Fake) Ran(prefix string) bool {
	for _, line := range f.CommandLines() {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

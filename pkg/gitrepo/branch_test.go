package gitrepo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dockhand/dockhand/pkg/errors"
	"github.com/dockhand/dockhand/pkg/execx"
)

func TestParseSymref(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want string
	}{
		{
			name: "main",
			out:  "ref: refs/heads/main\tHEAD\n9c3f1a2b\tHEAD\n",
			want: "main",
		},
		{
			name: "trunk",
			out:  "ref: refs/heads/trunk\tHEAD\n",
			want: "trunk",
		},
		{
			name: "nested branch name",
			out:  "ref: refs/heads/release/2024\tHEAD\n",
			want: "release/2024",
		},
		{
			name: "no symref line",
			out:  "9c3f1a2b\tHEAD\n",
			want: "",
		},
		{
			name: "empty",
			out:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSymref(tt.out))
		})
	}
}

func TestDefaultBranchFromRemote(t *testing.T) {
	fake := &execx.Fake{}
	fake.Stub("git -C /repo ls-remote --symref origin HEAD",
		execx.Result{Stdout: "ref: refs/heads/develop\tHEAD\nabc123\tHEAD\n"})

	f := newFetcher(fake, t.TempDir())

	branch, err := f.DefaultBranch(context.Background(), "/repo")
	require.NoError(t, err)
	assert.Equal(t, "develop", branch)
}

func TestDefaultBranchFallsBackToMaster(t *testing.T) {
	// The remote advertises nothing, no local main exists, but a local
	// master does: the resolver must select master.
	fake := &execx.Fake{}
	fake.Stub("git -C /repo ls-remote", execx.Result{Stdout: ""})
	fake.Stub("git -C /repo show-ref --verify --quiet refs/heads/main", execx.Result{ExitCode: 1})
	fake.Stub("git -C /repo show-ref --verify --quiet refs/heads/master", execx.Result{ExitCode: 0})

	f := newFetcher(fake, t.TempDir())

	branch, err := f.DefaultBranch(context.Background(), "/repo")
	require.NoError(t, err)
	assert.Equal(t, "master", branch)
}

func TestDefaultBranchPrefersMain(t *testing.T) {
	fake := &execx.Fake{}
	fake.Stub("git -C /repo ls-remote", execx.Result{ExitCode: 128})

	f := newFetcher(fake, t.TempDir())

	branch, err := f.DefaultBranch(context.Background(), "/repo")
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
}

func TestDefaultBranchFailsWithoutCandidates(t *testing.T) {
	fake := &execx.Fake{}
	fake.Stub("git -C /repo ls-remote", execx.Result{Stdout: ""})
	fake.Stub("git -C /repo show-ref", execx.Result{ExitCode: 1})

	f := newFetcher(fake, t.TempDir())

	_, err := f.DefaultBranch(context.Background(), "/repo")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeBranchNotFound))
}

func TestCheckout(t *testing.T) {
	t.Run("checks out and pulls", func(t *testing.T) {
		fake := &execx.Fake{}

		f := newFetcher(fake, t.TempDir())
		require.NoError(t, f.Checkout(context.Background(), "/repo", "main"))

		assert.True(t, fake.Ran("git -C /repo checkout main"))
		assert.True(t, fake.Ran("git -C /repo pull --ff-only"))
	})

	t.Run("failed fast-forward is tolerated", func(t *testing.T) {
		fake := &execx.Fake{}
		fake.Stub("git -C /repo pull --ff-only",
			execx.Result{ExitCode: 128, Stderr: "fatal: Not possible to fast-forward"})

		f := newFetcher(fake, t.TempDir())
		assert.NoError(t, f.Checkout(context.Background(), "/repo", "main"))
	})

	t.Run("failed checkout is fatal", func(t *testing.T) {
		fake := &execx.Fake{}
		fake.Stub("git -C /repo checkout", execx.Result{ExitCode: 1, Stderr: "error: pathspec"})

		f := newFetcher(fake, t.TempDir())
		err := f.Checkout(context.Background(), "/repo", "nope")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeCloneFailed))
	})
}

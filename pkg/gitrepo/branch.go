package gitrepo

import (
	"context"
	"strings"

	"github.com/dockhand/dockhand/pkg/errors"
)

// branchFallbacks is the preference order when the remote does not
// advertise its HEAD.
var branchFallbacks = []string{"main", "master"}

// DefaultBranch resolves the branch to check out: the remote's advertised
// HEAD when available, otherwise the first existing local fallback.
func (f *Fetcher) DefaultBranch(ctx context.Context, dir string) (string, error) {
	res, err := f.Runner.Run(ctx, f.git(dir, "ls-remote", "--symref", "origin", "HEAD"))
	if err == nil && res.Ok() {
		if name := parseSymref(res.Stdout); name != "" {
			f.log().Debug("remote advertised default branch", "branch", name)
			return name, nil
		}
	}
	f.log().Debug("remote HEAD not advertised, trying local branches")

	for _, name := range branchFallbacks {
		if f.localBranchExists(ctx, dir, name) {
			return name, nil
		}
	}
	return "", errors.New(errors.ErrCodeBranchNotFound,
		"cannot determine the default branch: remote advertises none and neither main nor master exists locally")
}

// Checkout switches the working tree to branch and fast-forwards it. A
// pull that cannot fast-forward is tolerated: local divergence is the
// operator's to resolve.
func (f *Fetcher) Checkout(ctx context.Context, dir, branch string) error {
	if _, err := f.run(ctx, f.git(dir, "checkout", branch)); err != nil {
		return errors.Wrap(errors.ErrCodeCloneFailed, err, "failed to check out %s", branch)
	}

	res, err := f.runRaw(ctx, f.git(dir, "pull", "--ff-only"))
	if err != nil {
		return err
	}
	if !res.Ok() {
		f.log().Warn("fast-forward pull failed, leaving local state as-is",
			"branch", branch, "stderr", strings.TrimSpace(res.Stderr))
	}
	return nil
}

// parseSymref extracts the branch name from ls-remote --symref output,
// which leads with a line like "ref: refs/heads/main\tHEAD".
func parseSymref(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "ref:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		return strings.TrimPrefix(fields[1], "refs/heads/")
	}
	return ""
}

func (f *Fetcher) localBranchExists(ctx context.Context, dir, name string) bool {
	res, err := f.Runner.Run(ctx, f.git(dir, "show-ref", "--verify", "--quiet", "refs/heads/"+name))
	return err == nil && res.Ok()
}

// Package repourl normalizes repository URLs into their canonical HTTPS
// and SSH forms.
//
// Only the two GitHub grammars are recognized. Anything else passes
// through verbatim as both canonical forms: the URL may point at a
// private Git host this tool knows nothing about, so degrading beats
// failing.
package repourl

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dockhand/dockhand/pkg/errors"
)

var (
	// https://github.com/owner/repo[.git][/]
	httpsRegex = regexp.MustCompile(`^https?://github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)
	// git@github.com:owner/repo[.git]
	sshRegex = regexp.MustCompile(`^git@github\.com:([^/]+)/([^/]+?)(?:\.git)?$`)
)

// Repo is the result of normalizing a raw repository URL.
type Repo struct {
	Raw   string // Input as given
	Owner string // GitHub owner, empty when unrecognized
	Name  string // Repository name without .git, derived from the path for unrecognized input
	HTTPS string // Canonical HTTPS clone URL; equals Raw when unrecognized
	SSH   string // Canonical SSH clone URL; equals Raw when unrecognized

	recognized bool
}

// Normalize parses raw against the known grammars. The only error is an
// empty input; an unrecognized non-empty URL is returned with both
// canonical forms set to the raw input so callers can still attempt it.
func Normalize(raw string) (Repo, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Repo{}, errors.New(errors.ErrCodeInvalidURL, "repository URL is empty")
	}

	if m := httpsRegex.FindStringSubmatch(raw); m != nil {
		return canonical(raw, m[1], m[2]), nil
	}
	if m := sshRegex.FindStringSubmatch(raw); m != nil {
		return canonical(raw, m[1], m[2]), nil
	}

	return Repo{
		Raw:   raw,
		Name:  deriveName(raw),
		HTTPS: raw,
		SSH:   raw,
	}, nil
}

func canonical(raw, owner, name string) Repo {
	return Repo{
		Raw:        raw,
		Owner:      owner,
		Name:       name,
		HTTPS:      "https://github.com/" + owner + "/" + name + ".git",
		SSH:        "git@github.com:" + owner + "/" + name + ".git",
		recognized: true,
	}
}

// Recognized reports whether the input matched a known grammar.
func (r Repo) Recognized() bool {
	return r.recognized
}

// Slug returns owner/name for recognized repositories and the raw input
// otherwise.
func (r Repo) Slug() string {
	if r.recognized {
		return r.Owner + "/" + r.Name
	}
	return r.Raw
}

// TargetDir returns the clone destination under the invoking user's home
// directory.
func (r Repo) TargetDir(home string) string {
	return filepath.Join(home, r.Name)
}

// deriveName extracts a directory name from an unrecognized URL: the last
// path segment with any trailing .git stripped.
func deriveName(raw string) string {
	s := strings.TrimRight(raw, "/")
	if i := strings.LastIndexAny(s, "/:"); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSuffix(s, ".git")
}

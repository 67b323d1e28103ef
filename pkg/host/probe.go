package host

import (
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"os/user"
	"slices"

	"github.com/dockhand/dockhand/pkg/execx"
)

// Presence is the tri-state answer of an idempotence probe. The zero
// value is Unknown: a probe that cannot answer must not masquerade as a
// definite result.
type Presence int

const (
	// Unknown means the probe could not determine an answer.
	Unknown Presence = iota
	// Absent means the probed artifact is definitively missing.
	Absent
	// Present means the probed artifact definitively exists.
	Present
)

// String implements fmt.Stringer.
func (p Presence) String() string {
	switch p {
	case Absent:
		return "absent"
	case Present:
		return "present"
	default:
		return "unknown"
	}
}

// BinaryPresence probes for an executable on the runner's PATH.
func BinaryPresence(r execx.Runner, name string) Presence {
	_, err := r.LookPath(name)
	switch {
	case err == nil:
		return Present
	case errors.Is(err, exec.ErrNotFound):
		return Absent
	default:
		return Unknown
	}
}

// DirPresence probes for a directory at path. A non-directory entry at
// path counts as absent.
func DirPresence(path string) Presence {
	fi, err := os.Stat(path)
	switch {
	case err == nil && fi.IsDir():
		return Present
	case err == nil:
		return Absent
	case errors.Is(err, fs.ErrNotExist):
		return Absent
	default:
		return Unknown
	}
}

// FilePresence probes for a regular file at path.
func FilePresence(path string) Presence {
	fi, err := os.Stat(path)
	switch {
	case err == nil && fi.Mode().IsRegular():
		return Present
	case err == nil:
		return Absent
	case errors.Is(err, fs.ErrNotExist):
		return Absent
	default:
		return Unknown
	}
}

// GroupMembership probes whether the account belongs to the named group.
func GroupMembership(a Account, group string) Presence {
	g, err := user.LookupGroup(group)
	if err != nil {
		var unknown user.UnknownGroupError
		if errors.As(err, &unknown) {
			return Absent
		}
		return Unknown
	}

	u, err := user.Lookup(a.Username)
	if err != nil {
		return Unknown
	}
	ids, err := u.GroupIds()
	if err != nil {
		return Unknown
	}
	if slices.Contains(ids, g.Gid) {
		return Present
	}
	return Absent
}

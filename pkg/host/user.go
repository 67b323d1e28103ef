package host

import (
	"os"
	"os/user"
	"strconv"

	"github.com/dockhand/dockhand/pkg/errors"
	"github.com/dockhand/dockhand/pkg/execx"
)

// Account identifies the human user the bootstrap acts for. When the tool
// runs under sudo this is the user behind the elevation, never root:
// clones, SSH keys and group membership all belong to this account.
type Account struct {
	Username string
	UID      int
	GID      int
	Home     string
}

// ResolveAccount decides which account owns the provisioned artifacts.
// Priority: the explicit override, then SUDO_USER, then the current
// process user. A SUDO_USER that does not resolve to a real account is a
// hard error rather than a silent fallback to root.
func ResolveAccount(override string) (Account, error) {
	if override != "" {
		if err := errors.ValidateUsername(override); err != nil {
			return Account{}, err
		}
		u, err := user.Lookup(override)
		if err != nil {
			return Account{}, errors.Wrap(errors.ErrCodeInvalidUser, err, "user %q not found", override)
		}
		return fromUser(u)
	}

	if su := os.Getenv("SUDO_USER"); su != "" {
		u, err := user.Lookup(su)
		if err != nil {
			return Account{}, errors.Wrap(errors.ErrCodeInvalidUser, err,
				"SUDO_USER=%q does not resolve to an account", su)
		}
		return fromUser(u)
	}

	u, err := user.Current()
	if err != nil {
		return Account{}, errors.Wrap(errors.ErrCodeInvalidUser, err,
			"cannot determine the invoking user, pass --user to override")
	}
	return fromUser(u)
}

func fromUser(u *user.User) (Account, error) {
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return Account{}, errors.Wrap(errors.ErrCodeInternal, err, "non-numeric uid %q", u.Uid)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return Account{}, errors.Wrap(errors.ErrCodeInternal, err, "non-numeric gid %q", u.Gid)
	}
	return Account{Username: u.Username, UID: uid, GID: gid, Home: u.HomeDir}, nil
}

// AsRoot arranges for cmd to run with root privileges, prefixing sudo when
// the current process is unprivileged. Environment entries are hoisted
// into sudo-style VAR=value assignments so they survive env_reset.
func AsRoot(cmd execx.Command) execx.Command {
	if RunningAsRoot() {
		return cmd
	}
	return sudoWrap(cmd, "")
}

// AsUser arranges for cmd to run as the given account via sudo -H -u,
// returning it unchanged when the process already is that user. The -H
// flag makes HOME the target user's so tools like ssh and git find the
// account's own configuration.
func AsUser(a Account, cmd execx.Command) execx.Command {
	if cur, err := user.Current(); err == nil && cur.Username == a.Username {
		return cmd
	}
	return sudoWrap(cmd, a.Username)
}

func sudoWrap(cmd execx.Command, username string) execx.Command {
	args := make([]string, 0, len(cmd.Env)+len(cmd.Args)+4)
	if username != "" {
		args = append(args, "-H", "-u", username)
	}
	args = append(args, cmd.Env...)
	args = append(args, cmd.Name)
	args = append(args, cmd.Args...)

	out := cmd
	out.Name = "sudo"
	out.Args = args
	out.Env = nil
	return out
}

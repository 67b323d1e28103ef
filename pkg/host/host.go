// Package host probes the machine being provisioned: operating system and
// distribution identity, the invoking user behind any sudo elevation, and
// presence checks that gate every provisioning action.
//
// Probes are deliberately tri-state (see Presence): a probe that cannot
// answer reports Unknown instead of guessing, and installers treat Unknown
// like Absent so probe-then-act stays safe.
package host

import (
	"bufio"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/dockhand/dockhand/pkg/errors"
)

// osReleasePath is the standard distribution identity file on systemd
// systems.
const osReleasePath = "/etc/os-release"

// Info describes the host's operating system and distribution.
type Info struct {
	OS         string   // runtime.GOOS
	ID         string   // os-release ID, e.g. "ubuntu"
	IDLike     []string // os-release ID_LIKE, e.g. ["debian"]
	VersionID  string   // os-release VERSION_ID, e.g. "24.04"
	Codename   string   // os-release VERSION_CODENAME, e.g. "noble"
	PrettyName string   // os-release PRETTY_NAME
}

// Detect reads the host identity. Missing or unparsable os-release data
// yields zero fields rather than an error: distribution identity is
// advisory and callers degrade to warnings.
func Detect() Info {
	info := Info{OS: runtime.GOOS}

	f, err := os.Open(osReleasePath)
	if err != nil {
		return info
	}
	defer f.Close()

	fields := parseOSRelease(f)
	info.ID = fields["ID"]
	info.VersionID = fields["VERSION_ID"]
	info.Codename = fields["VERSION_CODENAME"]
	info.PrettyName = fields["PRETTY_NAME"]
	if like := fields["ID_LIKE"]; like != "" {
		info.IDLike = strings.Fields(like)
	}
	return info
}

// parseOSRelease reads KEY=value lines, stripping surrounding quotes.
// Comments and malformed lines are skipped.
func parseOSRelease(r io.Reader) map[string]string {
	fields := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.Trim(value, `"'`)
		fields[strings.TrimSpace(key)] = value
	}
	return fields
}

// SupportedDistro reports whether the host runs a distribution this tool
// knows how to provision (Ubuntu, Debian, or a Debian derivative).
func (i Info) SupportedDistro() bool {
	if i.ID == "ubuntu" || i.ID == "debian" {
		return true
	}
	for _, like := range i.IDLike {
		if like == "debian" {
			return true
		}
	}
	return false
}

// CheckPlatform enforces the hard platform requirement. Everything else
// about the host is advisory, but a non-Linux OS cannot be provisioned.
func (i Info) CheckPlatform() error {
	if i.OS != "linux" {
		return errors.New(errors.ErrCodeUnsupportedPlatform,
			"unsupported platform %q: this tool provisions Linux hosts", i.OS)
	}
	return nil
}

// RunningAsRoot reports whether the current process has root privileges.
func RunningAsRoot() bool {
	return os.Geteuid() == 0
}

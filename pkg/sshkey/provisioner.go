// Package sshkey provisions SSH access to the git remote: key selection,
// native key generation, permission enforcement, and the interactive
// registration loop against GitHub.
//
// The authentication probe has one famous quirk: GitHub's test endpoint
// closes the connection with exit code 1 even when the key is accepted.
// Success is therefore detected by an acknowledgment substring in the
// probe output, never by the exit code.
package sshkey

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"encoding/pem"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/ssh"

	"github.com/dockhand/dockhand/pkg/errors"
	"github.com/dockhand/dockhand/pkg/execx"
	"github.com/dockhand/dockhand/pkg/host"
)

const (
	// ProbeHost is the authentication test target.
	ProbeHost = "git@github.com"

	// RegistrationURL is where a new public key is added to the account.
	RegistrationURL = "https://github.com/settings/ssh/new"

	// acceptedSubstring is GitHub's acknowledgment that the key worked.
	acceptedSubstring = "successfully authenticated"

	rsaKeyBits = 4096
)

// candidates is the key preference order, by file name.
var candidates = []struct {
	typ  string
	file string
}{
	{"ed25519", "id_ed25519"},
	{"rsa", "id_rsa"},
}

// Prompter asks the human whether to retry the authentication probe or
// give up. Implementations block until an answer is available; the loop
// has no timeout by design.
type Prompter interface {
	RetryOrAbort(message string) (retry bool, err error)
}

// Key is the key pair the provisioner selected or generated.
type Key struct {
	Type        string // ed25519 or rsa, by file name convention
	PrivatePath string
	PublicPath  string
	PublicLine  string // authorized_keys formatted line
	Generated   bool   // true when created by this run
}

// Status describes the key the provisioner would select, for reporting.
type Status struct {
	Found       bool
	Type        string
	PrivatePath string
	PublicPath  string
	DirMode     fs.FileMode
	PrivateMode fs.FileMode
	PublicMode  fs.FileMode
}

// Provisioner implements the key setup state machine.
type Provisioner struct {
	Runner   execx.Runner
	Logger   *log.Logger
	Account  host.Account
	KeyType  string // type generated when no key exists: ed25519 (default) or rsa
	Prompter Prompter

	// Announce displays the public key and registration URL to the
	// human. Nil prints to stdout.
	Announce func(publicLine, registrationURL string)

	// RunAs wraps the probe to run as the account. Defaults to
	// host.AsUser; tests replace it with the identity function.
	RunAs func(host.Account, execx.Command) execx.Command
}

// Provision drives the whole state machine: ensure a usable key exists
// with correct permissions, show it to the human, then loop on the
// authentication probe until GitHub accepts the key or the human aborts.
func (p *Provisioner) Provision(ctx context.Context) error {
	key, err := p.EnsureKey()
	if err != nil {
		return err
	}

	p.announce(key.PublicLine, RegistrationURL)

	for {
		ok, err := p.Test(ctx)
		if err != nil {
			return err
		}
		if ok {
			p.log().Info("ssh authentication accepted", "key", key.PrivatePath)
			return nil
		}

		retry, err := p.prompt("GitHub did not accept the key. Register it, then retry?")
		if err != nil {
			return err
		}
		if !retry {
			return errors.New(errors.ErrCodeSSHSetupAborted, "ssh key registration aborted")
		}
	}
}

// EnsureKey selects the preferred existing key or generates a new one,
// and enforces the permission invariants either way. Existing key files
// are never overwritten.
func (p *Provisioner) EnsureKey() (Key, error) {
	sshDir := filepath.Join(p.Account.Home, ".ssh")
	if err := p.ensureSSHDir(sshDir); err != nil {
		return Key{}, err
	}

	for _, cand := range candidates {
		priv := filepath.Join(sshDir, cand.file)
		if host.FilePresence(priv) != host.Present {
			continue
		}

		key := Key{Type: cand.typ, PrivatePath: priv, PublicPath: priv + ".pub"}
		if err := p.enforcePermissions(sshDir, &key); err != nil {
			return Key{}, err
		}
		line, err := p.publicLine(&key)
		if err != nil {
			return Key{}, err
		}
		key.PublicLine = line

		p.log().Info("using existing ssh key", "type", key.Type, "path", key.PrivatePath)
		return key, nil
	}

	return p.generate(sshDir)
}

// Test probes authentication non-interactively. The exit code is not
// consulted: GitHub exits 1 on success for this probe.
func (p *Provisioner) Test(ctx context.Context) (bool, error) {
	cmd := p.runAs(execx.Command{
		Name: "ssh",
		Args: []string{"-T", "-o", "StrictHostKeyChecking=accept-new", "-o", "BatchMode=yes", ProbeHost},
	})

	res, err := p.Runner.Run(ctx, cmd)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeSSHAuthFailed, err, "authentication probe could not run")
	}

	accepted := strings.Contains(res.Combined, acceptedSubstring)
	p.log().Debug("authentication probe", "accepted", accepted, "exit", res.ExitCode)
	return accepted, nil
}

// Existing reports the key the provisioner would use, without touching
// anything.
func (p *Provisioner) Existing() Status {
	sshDir := filepath.Join(p.Account.Home, ".ssh")

	st := Status{}
	if fi, err := os.Stat(sshDir); err == nil {
		st.DirMode = fi.Mode().Perm()
	}

	for _, cand := range candidates {
		priv := filepath.Join(sshDir, cand.file)
		if host.FilePresence(priv) != host.Present {
			continue
		}
		st.Found = true
		st.Type = cand.typ
		st.PrivatePath = priv
		st.PublicPath = priv + ".pub"
		if fi, err := os.Stat(priv); err == nil {
			st.PrivateMode = fi.Mode().Perm()
		}
		if fi, err := os.Stat(st.PublicPath); err == nil {
			st.PublicMode = fi.Mode().Perm()
		}
		break
	}
	return st
}

// generate creates a fresh passphrase-less key pair in OpenSSH format.
func (p *Provisioner) generate(sshDir string) (Key, error) {
	keyType := p.KeyType
	if keyType == "" {
		keyType = "ed25519"
	}

	var (
		signer  crypto.PrivateKey
		pub     crypto.PublicKey
		file    string
		comment = p.comment()
	)

	switch keyType {
	case "ed25519":
		public, private, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return Key{}, errors.Wrap(errors.ErrCodeKeygenFailed, err, "ed25519 generation failed")
		}
		signer, pub, file = private, public, "id_ed25519"
	case "rsa":
		private, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
		if err != nil {
			return Key{}, errors.Wrap(errors.ErrCodeKeygenFailed, err, "rsa generation failed")
		}
		signer, pub, file = private, private.Public(), "id_rsa"
	default:
		return Key{}, errors.New(errors.ErrCodeKeygenFailed, "unsupported key type %q", keyType)
	}

	block, err := ssh.MarshalPrivateKey(signer, comment)
	if err != nil {
		return Key{}, errors.Wrap(errors.ErrCodeKeygenFailed, err, "cannot marshal the private key")
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return Key{}, errors.Wrap(errors.ErrCodeKeygenFailed, err, "cannot derive the public key")
	}

	key := Key{
		Type:        keyType,
		PrivatePath: filepath.Join(sshDir, file),
		PublicPath:  filepath.Join(sshDir, file+".pub"),
		PublicLine:  authorizedLine(sshPub, comment),
		Generated:   true,
	}

	// O_EXCL guards the non-destructive invariant even against races
	// with a concurrent key creation.
	if err := writeExclusive(key.PrivatePath, pem.EncodeToMemory(block), 0o600); err != nil {
		return Key{}, errors.Wrap(errors.ErrCodeKeygenFailed, err, "cannot write %s", key.PrivatePath)
	}
	if err := writeExclusive(key.PublicPath, []byte(key.PublicLine+"\n"), 0o644); err != nil {
		return Key{}, errors.Wrap(errors.ErrCodeKeygenFailed, err, "cannot write %s", key.PublicPath)
	}
	p.chown(key.PrivatePath)
	p.chown(key.PublicPath)

	p.log().Info("generated ssh key", "type", key.Type, "path", key.PrivatePath)
	return key, nil
}

// publicLine returns the authorized_keys line, reading the .pub file or
// re-deriving it from the private key when the .pub file is missing.
func (p *Provisioner) publicLine(key *Key) (string, error) {
	if data, err := os.ReadFile(key.PublicPath); err == nil {
		return strings.TrimSpace(string(data)), nil
	}

	data, err := os.ReadFile(key.PrivatePath)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeKeygenFailed, err, "cannot read %s", key.PrivatePath)
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeKeygenFailed, err, "cannot parse %s", key.PrivatePath)
	}

	line := authorizedLine(signer.PublicKey(), p.comment())
	// Restore the missing .pub so later tooling finds it.
	if err := writeExclusive(key.PublicPath, []byte(line+"\n"), 0o644); err == nil {
		p.chown(key.PublicPath)
	}
	return line, nil
}

// ensureSSHDir creates the .ssh directory with the mandatory 0700 mode.
func (p *Provisioner) ensureSSHDir(sshDir string) error {
	if err := os.MkdirAll(sshDir, 0o700); err != nil {
		return errors.Wrap(errors.ErrCodeKeygenFailed, err, "cannot create %s", sshDir)
	}
	if err := os.Chmod(sshDir, 0o700); err != nil {
		return errors.Wrap(errors.ErrCodeKeygenFailed, err, "cannot restrict %s", sshDir)
	}
	p.chown(sshDir)
	return nil
}

// enforcePermissions applies the modes SSH clients demand. These are
// hard invariants: a lax private key makes clients refuse it outright.
func (p *Provisioner) enforcePermissions(sshDir string, key *Key) error {
	if err := os.Chmod(sshDir, 0o700); err != nil {
		return errors.Wrap(errors.ErrCodeKeygenFailed, err, "cannot restrict %s", sshDir)
	}
	if err := os.Chmod(key.PrivatePath, 0o600); err != nil {
		return errors.Wrap(errors.ErrCodeKeygenFailed, err, "cannot restrict %s", key.PrivatePath)
	}
	if host.FilePresence(key.PublicPath) == host.Present {
		if err := os.Chmod(key.PublicPath, 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeKeygenFailed, err, "cannot set mode on %s", key.PublicPath)
		}
	}
	p.chown(sshDir)
	p.chown(key.PrivatePath)
	p.chown(key.PublicPath)
	return nil
}

// chown hands the path to the invoking user. Failure is a warning:
// when the tool is not elevated the files already belong to the user.
func (p *Provisioner) chown(path string) {
	if p.Account.UID == 0 && p.Account.GID == 0 {
		return
	}
	if err := os.Chown(path, p.Account.UID, p.Account.GID); err != nil {
		p.log().Warn("cannot change ownership", "path", path, "err", err)
	}
}

func (p *Provisioner) comment() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	return fmt.Sprintf("%s@%s", p.Account.Username, hostname)
}

func authorizedLine(pub ssh.PublicKey, comment string) string {
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(pub))) + " " + comment
}

func writeExclusive(path string, data []byte, mode fs.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (p *Provisioner) announce(publicLine, url string) {
	if p.Announce != nil {
		p.Announce(publicLine, url)
		return
	}
	fmt.Printf("\n%s\n\nRegister this key at %s\n\n", publicLine, url)
}

func (p *Provisioner) prompt(message string) (bool, error) {
	if p.Prompter == nil {
		return false, errors.New(errors.ErrCodeSSHSetupAborted, "no interactive prompt available")
	}
	return p.Prompter.RetryOrAbort(message)
}

func (p *Provisioner) runAs(cmd execx.Command) execx.Command {
	if p.RunAs != nil {
		return p.RunAs(p.Account, cmd)
	}
	return host.AsUser(p.Account, cmd)
}

func (p *Provisioner) log() *log.Logger {
	if p.Logger == nil {
		return log.Default()
	}
	return p.Logger
}

// Package wireguard prepares the host for a tunnel interface: the
// configuration directory and an X25519 keypair in the base64 form
// wg(8) tooling expects. Keys are generated in-process rather than by
// shelling out to wg genkey.
package wireguard

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/curve25519"

	"github.com/dockhand/dockhand/pkg/errors"
	"github.com/dockhand/dockhand/pkg/host"
)

const (
	// ConfigDir is where wg-quick looks for interface configuration.
	ConfigDir = "/etc/wireguard"

	privateKeyFile = "privatekey"
	publicKeyFile  = "publickey"
)

// KeyPair holds a tunnel keypair, base64 encoded.
type KeyPair struct {
	PrivateKey string
	PublicKey  string
	Generated  bool // false when read back from an existing privatekey file
}

// Setup prepares the configuration directory and keypair.
type Setup struct {
	Logger *log.Logger

	// Dir overrides ConfigDir, for tests.
	Dir string

	// WriteKeys persists the keypair under Dir. Off by default; the
	// keys are returned in memory either way.
	WriteKeys bool

	DryRun bool
}

// Ensure returns the host keypair: the one already on disk when a
// privatekey file exists, a fresh one otherwise. Existing key material
// is never overwritten.
func (s *Setup) Ensure() (KeyPair, error) {
	privPath := filepath.Join(s.dir(), privateKeyFile)

	if host.FilePresence(privPath) == host.Present {
		data, err := os.ReadFile(privPath)
		if err != nil {
			return KeyPair{}, errors.Wrap(errors.ErrCodeKeygenFailed, err, "cannot read %s", privPath)
		}
		priv := strings.TrimSpace(string(data))
		pub, err := DerivePublicKey(priv)
		if err != nil {
			return KeyPair{}, err
		}
		s.log().Info("using existing wireguard key", "path", privPath)
		return KeyPair{PrivateKey: priv, PublicKey: pub}, nil
	}

	kp, err := GenerateKeyPair()
	if err != nil {
		return KeyPair{}, err
	}

	if !s.WriteKeys {
		s.log().Info("generated wireguard keypair in memory; pass --wg-keys to persist it")
		return kp, nil
	}
	if s.DryRun {
		s.log().Info("dry-run: would write wireguard keypair", "dir", s.dir())
		return kp, nil
	}

	if err := s.EnsureConfigDir(); err != nil {
		return KeyPair{}, err
	}
	if err := writeExclusive(privPath, kp.PrivateKey+"\n", 0o600); err != nil {
		return KeyPair{}, errors.Wrap(errors.ErrCodeKeygenFailed, err, "cannot write %s", privPath)
	}
	pubPath := filepath.Join(s.dir(), publicKeyFile)
	if err := writeExclusive(pubPath, kp.PublicKey+"\n", 0o644); err != nil {
		return KeyPair{}, errors.Wrap(errors.ErrCodeKeygenFailed, err, "cannot write %s", pubPath)
	}
	s.log().Info("wrote wireguard keypair", "dir", s.dir())
	return kp, nil
}

// EnsureConfigDir creates the configuration directory with the
// restrictive mode wg-quick expects.
func (s *Setup) EnsureConfigDir() error {
	if s.DryRun {
		s.log().Info("dry-run: would ensure directory", "path", s.dir(), "mode", "0700")
		return nil
	}
	if err := os.MkdirAll(s.dir(), 0o700); err != nil {
		return errors.Wrap(errors.ErrCodeKeygenFailed, err, "cannot create %s", s.dir())
	}
	if err := os.Chmod(s.dir(), 0o700); err != nil {
		return errors.Wrap(errors.ErrCodeKeygenFailed, err, "cannot restrict %s", s.dir())
	}
	return nil
}

// GenerateKeyPair produces a clamped X25519 keypair.
func GenerateKeyPair() (KeyPair, error) {
	var priv [32]byte
	if _, err := io.ReadFull(rand.Reader, priv[:]); err != nil {
		return KeyPair{}, errors.Wrap(errors.ErrCodeKeygenFailed, err, "cannot draw key material")
	}
	clamp(&priv)

	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return KeyPair{}, errors.Wrap(errors.ErrCodeKeygenFailed, err, "cannot derive public key")
	}
	return KeyPair{
		PrivateKey: base64.StdEncoding.EncodeToString(priv[:]),
		PublicKey:  base64.StdEncoding.EncodeToString(pub),
		Generated:  true,
	}, nil
}

// DerivePublicKey recomputes the public half from a base64 private key.
func DerivePublicKey(privB64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(privB64))
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeKeygenFailed, err, "private key is not base64")
	}
	if len(raw) != 32 {
		return "", errors.New(errors.ErrCodeKeygenFailed, "private key must be 32 bytes, got %d", len(raw))
	}

	var priv [32]byte
	copy(priv[:], raw)
	clamp(&priv)

	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeKeygenFailed, err, "cannot derive public key")
	}
	return base64.StdEncoding.EncodeToString(pub), nil
}

// clamp applies the X25519 scalar clamp in place.
func clamp(priv *[32]byte) {
	priv[0] &= 248
	priv[31] = (priv[31] & 127) | 64
}

func writeExclusive(path, data string, mode os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *Setup) dir() string {
	if s.Dir != "" {
		return s.Dir
	}
	return ConfigDir
}

func (s *Setup) log() *log.Logger {
	if s.Logger == nil {
		return log.Default()
	}
	return s.Logger
}

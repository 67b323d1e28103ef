package wireguard

import (
	"encoding/base64"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSetup(t *testing.T) *Setup {
	t.Helper()
	return &Setup{
		Logger: log.New(io.Discard),
		Dir:    t.TempDir(),
	}
}

func TestGenerateKeyPair(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.True(t, kp.Generated)

	priv, err := base64.StdEncoding.DecodeString(kp.PrivateKey)
	require.NoError(t, err)
	require.Len(t, priv, 32)

	pub, err := base64.StdEncoding.DecodeString(kp.PublicKey)
	require.NoError(t, err)
	assert.Len(t, pub, 32)

	// X25519 clamp: low 3 bits cleared, top bit cleared, bit 254 set.
	assert.Zero(t, priv[0]&7)
	assert.Zero(t, priv[31]&128)
	assert.Equal(t, byte(64), priv[31]&64)
}

func TestGenerateKeyPairIsRandom(t *testing.T) {
	a, err := GenerateKeyPair()
	require.NoError(t, err)
	b, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.NotEqual(t, a.PrivateKey, b.PrivateKey)
}

func TestDerivePublicKey(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	pub, err := DerivePublicKey(kp.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey, pub)

	// Surrounding whitespace, as read from a key file, is tolerated.
	pub, err = DerivePublicKey(" " + kp.PrivateKey + "\n")
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey, pub)
}

func TestDerivePublicKeyRejectsBadInput(t *testing.T) {
	_, err := DerivePublicKey("not base64!!!")
	assert.Error(t, err)

	_, err = DerivePublicKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
}

func TestEnsureInMemoryByDefault(t *testing.T) {
	s := newSetup(t)

	kp, err := s.Ensure()
	require.NoError(t, err)
	assert.True(t, kp.Generated)
	assert.NotEmpty(t, kp.PrivateKey)

	entries, err := os.ReadDir(s.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing written without WriteKeys")
}

func TestEnsureWritesKeys(t *testing.T) {
	s := newSetup(t)
	s.WriteKeys = true

	kp, err := s.Ensure()
	require.NoError(t, err)

	dirInfo, err := os.Stat(s.Dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())

	privPath := filepath.Join(s.Dir, "privatekey")
	privInfo, err := os.Stat(privPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), privInfo.Mode().Perm())

	privData, err := os.ReadFile(privPath)
	require.NoError(t, err)
	assert.Equal(t, kp.PrivateKey+"\n", string(privData))

	pubInfo, err := os.Stat(filepath.Join(s.Dir, "publickey"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), pubInfo.Mode().Perm())
}

func TestEnsureKeepsExistingKey(t *testing.T) {
	s := newSetup(t)
	s.WriteKeys = true

	first, err := s.Ensure()
	require.NoError(t, err)

	second, err := s.Ensure()
	require.NoError(t, err)

	assert.False(t, second.Generated)
	assert.Equal(t, first.PrivateKey, second.PrivateKey)
	assert.Equal(t, first.PublicKey, second.PublicKey)
}

func TestEnsureReadsPlantedKey(t *testing.T) {
	s := newSetup(t)

	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir, "privatekey"), []byte(kp.PrivateKey+"\n"), 0o600))

	got, err := s.Ensure()
	require.NoError(t, err)
	assert.False(t, got.Generated)
	assert.Equal(t, kp.PrivateKey, got.PrivateKey)
	assert.Equal(t, kp.PublicKey, got.PublicKey)
}

func TestEnsureDryRunWritesNothing(t *testing.T) {
	s := newSetup(t)
	s.WriteKeys = true
	s.DryRun = true

	kp, err := s.Ensure()
	require.NoError(t, err)
	assert.NotEmpty(t, kp.PrivateKey)

	entries, err := os.ReadDir(s.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEnsureRejectsCorruptKeyFile(t *testing.T) {
	s := newSetup(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir, "privatekey"), []byte("garbage\n"), 0o600))

	_, err := s.Ensure()
	assert.Error(t, err)
}

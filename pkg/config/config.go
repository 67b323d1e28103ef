// Package config resolves tool configuration from, in priority order,
// command line input, environment variables, an optional TOML config
// file, and built-in defaults.
//
// An optional .env file in the working directory is loaded before any
// environment lookup so operators can keep host-specific settings next to
// their compose files.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/dockhand/dockhand/pkg/errors"
)

const appName = "dockhand"

// EnvRepoURL overrides the repository URL when no CLI argument is given.
const EnvRepoURL = "DOCKHAND_REPO_URL"

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "DOCKHAND_CONFIG"

// Config holds all configuration for the tool.
type Config struct {
	Repo      RepoConfig      `toml:"repo"`
	Packages  PackagesConfig  `toml:"packages"`
	Firewall  FirewallConfig  `toml:"firewall"`
	SSH       SSHConfig       `toml:"ssh"`
	WireGuard WireGuardConfig `toml:"wireguard"`
}

// RepoConfig holds repository settings.
type RepoConfig struct {
	URL string `toml:"url"`
}

// PackagesConfig holds the OS package lists.
type PackagesConfig struct {
	Core []string `toml:"core"`
}

// FirewallConfig holds the UFW baseline.
type FirewallConfig struct {
	Allow []string `toml:"allow"`
}

// SSHConfig holds key generation settings.
type SSHConfig struct {
	KeyType string `toml:"key_type"`
}

// WireGuardConfig holds WireGuard settings.
type WireGuardConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Packages: PackagesConfig{
			Core: []string{"git", "curl", "ca-certificates", "gnupg"},
		},
		Firewall: FirewallConfig{
			Allow: []string{"OpenSSH"},
		},
		SSH: SSHConfig{
			KeyType: "ed25519",
		},
		WireGuard: WireGuardConfig{
			Enabled: true,
		},
	}
}

// Load reads the configuration: built-in defaults overlaid with the
// config file when one exists. A missing file is not an error.
func Load() (*Config, error) {
	// Optional; host settings may live next to the compose files.
	_ = godotenv.Load()

	cfg := Default()

	path, err := Path()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfig, err, "cannot parse %s", path)
		}
	case os.IsNotExist(err):
		return cfg, nil
	default:
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "cannot read %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the config file location: the env override, else
// $XDG_CONFIG_HOME/dockhand/config.toml, else ~/.config/dockhand/config.toml.
func Path() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Validate checks the configuration for values the tool cannot act on.
func (c *Config) Validate() error {
	if c.SSH.KeyType != "ed25519" && c.SSH.KeyType != "rsa" {
		return errors.New(errors.ErrCodeConfig, "ssh.key_type must be ed25519 or rsa, got %q", c.SSH.KeyType)
	}
	for _, pkg := range c.Packages.Core {
		if err := errors.ValidateAptPackageName(pkg); err != nil {
			return errors.Wrap(errors.ErrCodeConfig, err, "packages.core entry %q", pkg)
		}
	}
	for _, rule := range c.Firewall.Allow {
		if rule == "" {
			return errors.New(errors.ErrCodeConfig, "firewall.allow entries cannot be empty")
		}
	}
	return nil
}

// ResolveRepoURL applies the repository URL priority chain: CLI argument,
// then environment, then config file. Empty means the caller should
// prompt interactively.
func ResolveRepoURL(arg string, cfg *Config) string {
	if arg != "" {
		return arg
	}
	if v := getEnv(EnvRepoURL, ""); v != "" {
		return v
	}
	return cfg.Repo.URL
}

// getEnv gets an environment variable with a fallback value.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

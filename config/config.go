// Package config handles application configuration.
//
// Everything here is operational: mint endpoint, storage location, sync
// tuning, logging. Protocol behavior (derivation path, envelope formats)
// is fixed in code and must match the mint.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Config holds wallet runtime configuration.
type Config struct {
	// Core
	DataDir string `conf:"datadir"`

	// Mint service
	Mint MintConfig

	// Sync tuning
	Sync SyncConfig

	// Logging
	Log LogConfig
}

// MintConfig holds mint endpoint settings.
type MintConfig struct {
	URL string `conf:"mint.url"`
	// PublicKey pins the mint's compressed public key (hex). Empty means
	// fetch it from the mint on startup; pinning protects against an
	// endpoint hijack swapping the encryption target.
	PublicKey string        `conf:"mint.pubkey"`
	Timeout   time.Duration `conf:"mint.timeout"`
}

// SyncConfig holds reconciliation tuning.
type SyncConfig struct {
	// GapLimit is the consecutive-miss tolerance of the recovery scan.
	GapLimit int `conf:"sync.gaplimit"`
	// Cooldown collapses sync triggers arriving within the window.
	Cooldown time.Duration `conf:"sync.cooldown"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.hivecash
//	macOS:   ~/Library/Application Support/Hivecash
//	Windows: %APPDATA%\Hivecash
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hivecash"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Hivecash")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Hivecash")
		}
		return filepath.Join(home, "AppData", "Roaming", "Hivecash")
	default:
		return filepath.Join(home, ".hivecash")
	}
}

// WalletDir returns the wallet database directory.
func (c *Config) WalletDir() string {
	return filepath.Join(c.DataDir, "wallet")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "hivecash.conf")
}

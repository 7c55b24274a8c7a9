package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
)

// Validate checks runtime config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir must not be empty")
	}

	if cfg.Mint.URL == "" {
		return fmt.Errorf("mint.url must not be empty")
	}
	u, err := url.Parse(cfg.Mint.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("mint.url must be an http(s) URL")
	}
	if cfg.Mint.PublicKey != "" {
		raw, err := hex.DecodeString(cfg.Mint.PublicKey)
		if err != nil || len(raw) != 33 {
			return fmt.Errorf("mint.pubkey must be a 33-byte compressed key in hex")
		}
	}
	if cfg.Mint.Timeout < 0 {
		return fmt.Errorf("mint.timeout must not be negative")
	}

	if cfg.Sync.GapLimit < 1 {
		return fmt.Errorf("sync.gaplimit must be at least 1")
	}
	if cfg.Sync.Cooldown < 0 {
		return fmt.Errorf("sync.cooldown must not be negative")
	}

	return nil
}

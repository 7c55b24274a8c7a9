package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads wallet configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	case "datadir":
		cfg.DataDir = value

	// Mint
	case "mint.url":
		cfg.Mint.URL = value
	case "mint.pubkey":
		cfg.Mint.PublicKey = value
	case "mint.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Mint.Timeout = d

	// Sync
	case "sync.gaplimit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.Sync.GapLimit = n
	case "sync.cooldown":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Sync.Cooldown = d

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WriteDefaultConfig writes a default configuration file.
func WriteDefaultConfig(path string) error {
	content := `# HiveCash Wallet Configuration

# Data directory (default: ~/.hivecash)
# datadir = ~/.hivecash

# ============================================================================
# Mint Service
# ============================================================================

mint.url = https://mint.hivecuba.com

# Pin the mint's compressed public key (hex). When unset, the key is
# fetched from the mint on startup.
# mint.pubkey =

# HTTP timeout for mint requests
mint.timeout = 15s

# ============================================================================
# Sync
# ============================================================================

# Recovery scan stops after this many consecutive unknown indices
sync.gaplimit = 10

# Repeat sync triggers within this window reuse the previous result
sync.cooldown = 3s

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}

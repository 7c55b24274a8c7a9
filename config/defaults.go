package config

import "time"

// Default returns the default wallet configuration.
func Default() *Config {
	return &Config{
		DataDir: DefaultDataDir(),
		Mint: MintConfig{
			URL:     "https://mint.hivecuba.com",
			Timeout: 15 * time.Second,
		},
		Sync: SyncConfig{
			GapLimit: 10,
			Cooldown: 3 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

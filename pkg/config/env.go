package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// applyEnvOverrides layers MAPSYNC_* environment variables (optionally from
// a .env file in the working directory) over the loaded configuration.
func (c *Config) applyEnvOverrides() {
	// A missing .env is the normal case; plain environment variables still apply.
	_ = godotenv.Load()

	if v := os.Getenv("MAPSYNC_DOWNLOAD_DIR"); v != "" {
		c.Settings.DownloadDir = v
	}
	if v := os.Getenv("MAPSYNC_LOG_LEVEL"); v != "" {
		c.Settings.LogLevel = v
	}
	if v := os.Getenv("MAPSYNC_HOOK_DIR"); v != "" {
		c.Settings.HookDir = v
	}
	if v := os.Getenv("MAPSYNC_MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Settings.MaxWorkers = n
		}
	}
	if v := os.Getenv("MAPSYNC_SKIP_SIZE_CHECK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Settings.SkipSizeCheck = b
		}
	}
}

package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig      = "FILEMGR_CONFIG"
	EnvServer      = "FILEMGR_SERVER"
	EnvDownloadDir = "FILEMGR_DOWNLOAD_DIR"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath  string // FILEMGR_CONFIG: override config file path
	ServerURL   string // FILEMGR_SERVER: server base URL
	DownloadDir string // FILEMGR_DOWNLOAD_DIR: download directory
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:  os.Getenv(EnvConfig),
		ServerURL:   os.Getenv(EnvServer),
		DownloadDir: os.Getenv(EnvDownloadDir),
	}
}

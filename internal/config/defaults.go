package config

// Default values for configuration options. These represent the "layer 0"
// of the four-layer override chain and work without any config file against
// a server on localhost.
const (
	defaultServerURL      = "http://localhost:8000"
	defaultMaxUploadSize  = "0"
	defaultLogLevel       = "warn"
	defaultLogFormat      = "text"
	defaultConnectTimeout = "10s"
	defaultDataTimeout    = "60s"
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		ServerConfig:    ServerConfig{ServerURL: defaultServerURL},
		TransfersConfig: defaultTransfersConfig(),
		SafetyConfig:    SafetyConfig{ConfirmDeletes: true},
		LoggingConfig:   defaultLoggingConfig(),
		NetworkConfig:   defaultNetworkConfig(),
	}
}

func defaultTransfersConfig() TransfersConfig {
	return TransfersConfig{
		DownloadDir:    ".",
		MaxUploadSize:  defaultMaxUploadSize,
		HistoryEnabled: true,
	}
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
}

func defaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		ConnectTimeout: defaultConnectTimeout,
		DataTimeout:    defaultDataTimeout,
	}
}

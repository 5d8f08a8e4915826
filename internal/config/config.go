package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the hoodview service.
type Config struct {
	Storage   Storage   `yaml:"storage"`
	Server    Server    `yaml:"server"`
	Robinhood Robinhood `yaml:"robinhood"`
	Logging   Logging   `yaml:"logging"`
}

// Storage holds paths for data persistence. Sessions are kept in memory
// unless sessions is set to "sqlite".
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
	Sessions   string `yaml:"sessions"` // "memory" (default) or "sqlite"
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Robinhood holds endpoints and client parameters for the broker's
// unofficial API. The three hosts serve different domains: API (auth,
// equities, options), Nummus (crypto), and Phoenix (unified account).
type Robinhood struct {
	APIURL          string `yaml:"api_url"`
	NummusURL       string `yaml:"nummus_url"`
	PhoenixURL      string `yaml:"phoenix_url"`
	ClientID        string `yaml:"client_id"`
	TokenTTLSeconds int    `yaml:"token_ttl_seconds"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default endpoints and client parameters for the broker API. The client ID
// is the well-known one the broker's own web app presents.
const (
	DefaultAPIURL     = "https://api.robinhood.com"
	DefaultNummusURL  = "https://nummus.robinhood.com"
	DefaultPhoenixURL = "https://phoenix.robinhood.com"
	DefaultClientID   = "c82SH0WZOsabOXGP2sxqcj34FxkvfnWRZBKlBjFS"
)

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies defaults, and then applies environment variable
// overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyDefaults fills in zero-valued fields with working defaults so a
// minimal config file is enough to start the service.
func applyDefaults(cfg *Config) {
	if cfg.Robinhood.APIURL == "" {
		cfg.Robinhood.APIURL = DefaultAPIURL
	}
	if cfg.Robinhood.NummusURL == "" {
		cfg.Robinhood.NummusURL = DefaultNummusURL
	}
	if cfg.Robinhood.PhoenixURL == "" {
		cfg.Robinhood.PhoenixURL = DefaultPhoenixURL
	}
	if cfg.Robinhood.ClientID == "" {
		cfg.Robinhood.ClientID = DefaultClientID
	}
	if cfg.Robinhood.TokenTTLSeconds == 0 {
		cfg.Robinhood.TokenTTLSeconds = 86400
	}
	if cfg.Robinhood.TimeoutSeconds == 0 {
		cfg.Robinhood.TimeoutSeconds = 15
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.Sessions == "" {
		cfg.Storage.Sessions = "memory"
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("SESSION_STORE"); v != "" {
		cfg.Storage.Sessions = v
	}

	if v := os.Getenv("ROBINHOOD_API_URL"); v != "" {
		cfg.Robinhood.APIURL = v
	}

	if v := os.Getenv("ROBINHOOD_NUMMUS_URL"); v != "" {
		cfg.Robinhood.NummusURL = v
	}

	if v := os.Getenv("ROBINHOOD_PHOENIX_URL"); v != "" {
		cfg.Robinhood.PhoenixURL = v
	}

	if v := os.Getenv("ROBINHOOD_CLIENT_ID"); v != "" {
		cfg.Robinhood.ClientID = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

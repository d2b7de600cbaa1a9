package relaysrv

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the relayd runtime options. Values merge in order:
// defaults, then the YAML file, then VEILCHAT_* environment overrides.
type Config struct {
	ListenAddr   string        `yaml:"listenAddr"`
	DatabasePath string        `yaml:"databasePath"`
	TokenKey     string        `yaml:"tokenKey"` // HMAC signing key, >= 32 bytes
	RateRPS      float64       `yaml:"rateRPS"`
	RateBurst    int           `yaml:"rateBurst"`
	// ReadTimeout bounds the request-header read; there is no write
	// timeout because websocket connections are long-lived and manage
	// their own deadlines.
	ReadTimeout time.Duration `yaml:"readTimeout"`
}

func DefaultConfig() Config {
	return Config{
		ListenAddr:   ":8080",
		DatabasePath: "veilchat.db",
		RateRPS:      10,
		RateBurst:    20,
		ReadTimeout:  30 * time.Second,
	}
}

// LoadConfig reads the YAML file at path (skipped when path is empty or
// missing) and applies environment overrides on top of the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("parse config %q: %w", path, err)
		}
		merge(&cfg, parsed)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listenAddr must not be empty")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("databasePath must not be empty")
	}
	if len(c.TokenKey) < 32 {
		return fmt.Errorf("tokenKey must be at least 32 bytes, got %d", len(c.TokenKey))
	}
	return nil
}

func merge(dst *Config, src Config) {
	if src.ListenAddr != "" {
		dst.ListenAddr = src.ListenAddr
	}
	if src.DatabasePath != "" {
		dst.DatabasePath = src.DatabasePath
	}
	if src.TokenKey != "" {
		dst.TokenKey = src.TokenKey
	}
	if src.RateRPS != 0 {
		dst.RateRPS = src.RateRPS
	}
	if src.RateBurst != 0 {
		dst.RateBurst = src.RateBurst
	}
	if src.ReadTimeout != 0 {
		dst.ReadTimeout = src.ReadTimeout
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("VEILCHAT_LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("VEILCHAT_DATABASE_PATH")); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("VEILCHAT_TOKEN_KEY"); v != "" {
		cfg.TokenKey = v
	}
	if v := strings.TrimSpace(os.Getenv("VEILCHAT_RATE_RPS")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateRPS = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("VEILCHAT_RATE_BURST")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateBurst = n
		}
	}
}

// Package config loads and validates preserver configuration via Viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures every knob that influences an archive run. All values
// originate from Viper so the preserver can be configured via file, env vars,
// or CLI flags.
type Config struct {
	BiblioPath     string        `mapstructure:"biblio"`
	OutDir         string        `mapstructure:"out"`
	Concurrency    int           `mapstructure:"concurrency"`
	RequestTimeout time.Duration `mapstructure:"timeout"`
	Retries        int           `mapstructure:"retries"`
	Delay          time.Duration `mapstructure:"delay"`
	AllowLicensed  bool          `mapstructure:"allow_licensed"`
	UseBrowser     bool          `mapstructure:"use_browser"`
	MaxRecords     int           `mapstructure:"max_records"`
	Insecure       bool          `mapstructure:"insecure"`
	AcceptScanOnly bool          `mapstructure:"accept_scan_only"`
	TrustHosts     []string      `mapstructure:"trust_hosts"`
	RequireSecrets bool          `mapstructure:"require_secrets"`
	StatusAddr     string        `mapstructure:"status_addr"`
	LogFile        string        `mapstructure:"log_file"`
	DevLog         bool          `mapstructure:"dev_log"`

	Secrets Secrets `mapstructure:"-"`
}

// Secrets holds environment-provided credentials. Each one is optional and
// merely enables a resolution path when present.
type Secrets struct {
	ADSToken       string
	UnpaywallEmail string
}

// Load builds a Config from Viper state plus the process environment. A .env
// file next to the working directory is honored when present.
func Load(v *viper.Viper) (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Secrets = Secrets{
		ADSToken:       strings.TrimSpace(os.Getenv("ADS_TOKEN")),
		UnpaywallEmail: strings.TrimSpace(os.Getenv("UNPAYWALL_EMAIL")),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults registers defaults for every key on the given Viper.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("concurrency", 3)
	v.SetDefault("timeout", 60*time.Second)
	v.SetDefault("retries", 3)
	v.SetDefault("delay", 1500*time.Millisecond)
	v.SetDefault("allow_licensed", false)
	v.SetDefault("use_browser", false)
	v.SetDefault("max_records", 0)
	v.SetDefault("insecure", false)
	v.SetDefault("accept_scan_only", false)
	v.SetDefault("require_secrets", false)
	v.SetDefault("dev_log", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.BiblioPath == "" {
		return fmt.Errorf("biblio must be set")
	}
	if c.OutDir == "" {
		return fmt.Errorf("out must be set")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be > 0")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("timeout must be > 0")
	}
	if c.Retries <= 0 {
		return fmt.Errorf("retries must be > 0")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay must be >= 0")
	}
	if c.MaxRecords < 0 {
		return fmt.Errorf("max_records must be >= 0")
	}
	if c.RequireSecrets {
		if c.Secrets.ADSToken == "" {
			return fmt.Errorf("ADS_TOKEN must be set when require_secrets is enabled")
		}
		if c.Secrets.UnpaywallEmail == "" {
			return fmt.Errorf("UNPAYWALL_EMAIL must be set when require_secrets is enabled")
		}
	}
	return nil
}

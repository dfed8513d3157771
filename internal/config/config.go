package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

// External id issuance modes.
const (
	ExternalIDRandom = "random"
	ExternalIDFixed  = "fixed"
)

type Config struct {
	Env       string `env:"APP_ENV"      envDefault:"dev"`
	HttpPort  string `env:"HTTP_PORT"    envDefault:"8080"`
	DBPath    string `env:"DB_PATH"      envDefault:"data/cloudgate.db"` // used when DBDriver=sqlite
	DBDriver  string `env:"DB_DRIVER"    envDefault:"sqlite"`            // sqlite|postgres
	DBDsn     string `env:"DATABASE_URL"`                                // used when DBDriver=postgres
	DBDsnAlt  string `env:"DB_DSN"`
	StaticDir string `env:"STATIC_DIR"`

	SessionSecret string        `env:"SESSION_SECRET" envDefault:"cloudgate-dev-secret"`
	SessionTTL    time.Duration `env:"SESSION_TTL"    envDefault:"24h"`

	// simulated latencies of account creation and provider connect
	SignupDelay    time.Duration `env:"SIGNUP_DELAY"    envDefault:"2s"`
	ConnectDelay   time.Duration `env:"CONNECT_DELAY"   envDefault:"2s"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"30s"`

	BcryptCost        int    `env:"BCRYPT_COST"        envDefault:"10"`
	StrictCredentials bool   `env:"STRICT_CREDENTIALS" envDefault:"false"`
	ExternalIDMode    string `env:"EXTERNAL_ID_MODE"   envDefault:"random"`
	HandoffEnabled    bool   `env:"HANDOFF_ENABLED"    envDefault:"true"`

	// bearer token for the metrics, trace and log endpoints; unset disables them
	ObsToken string `env:"OBS_TOKEN"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DBDsn == "" {
		cfg.DBDsn = cfg.DBDsnAlt
	}
	cfg.ExternalIDMode = strings.ToLower(strings.TrimSpace(cfg.ExternalIDMode))
	switch cfg.ExternalIDMode {
	case ExternalIDRandom, ExternalIDFixed:
	default:
		return nil, fmt.Errorf("EXTERNAL_ID_MODE: unknown mode %q", cfg.ExternalIDMode)
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("BCRYPT_COST: %d outside %d..%d", cfg.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.ConnectTimeout > 0 && cfg.ConnectTimeout <= cfg.ConnectDelay {
		return nil, fmt.Errorf("CONNECT_TIMEOUT (%s) must exceed CONNECT_DELAY (%s)", cfg.ConnectTimeout, cfg.ConnectDelay)
	}
	return cfg, nil
}

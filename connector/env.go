package connector

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvConfig binds connection overrides the way $PGPASS/$PGUSER do for
// psql: a small set of environment variables take precedence over
// whatever a DSN or flag supplied, so a CI pipeline never needs to put
// a credential on the command line.
type EnvConfig struct {
	Host     string `env:"DBFORENSIC_HOST"`
	Port     int    `env:"DBFORENSIC_PORT"`
	User     string `env:"DBFORENSIC_USER"`
	Password string `env:"DBFORENSIC_PASSWORD"`
	SSLMode  string `env:"DBFORENSIC_SSLMODE" envDefault:"prefer"`
}

// LoadEnvConfig parses DBFORENSIC_* environment variables into an
// EnvConfig. Every field is optional; an unset variable leaves the
// corresponding field at its zero value (except SSLMode, which
// defaults to "prefer") so callers can layer it over
// flag/DSN-derived settings without clobbering them.
func LoadEnvConfig() (EnvConfig, error) {
	cfg := EnvConfig{}
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("connector: failed to parse environment variables: %w", err)
	}
	return cfg, nil
}

// ApplyOverrides layers non-empty EnvConfig fields onto a DSN's already
// parsed host/port/user/password/sslmode, env taking precedence exactly
// as $PGPASS overrides a -W flag.
func (e EnvConfig) ApplyOverrides(host string, port int, user, password, sslmode string) (string, int, string, string, string) {
	if e.Host != "" {
		host = e.Host
	}
	if e.Port != 0 {
		port = e.Port
	}
	if e.User != "" {
		user = e.User
	}
	if e.Password != "" {
		password = e.Password
	}
	if e.SSLMode != "" {
		sslmode = e.SSLMode
	}
	return host, port, user, password, sslmode
}

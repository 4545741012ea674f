package config

import (
	"github.com/caarlos0/env/v11"

	"outreach-engine/internal/config/configs"
)

// Config aggregates all configuration sections for the engine. Fields are
// populated from environment variables using the caarlos0/env library; the
// nested structs are tagged with envPrefix so their fields are parsed with
// the given prefix. See the individual types in the configs package for
// defaults. Use Load to construct a Config.
type Config struct {
	// Env specifies the deployment environment (e.g. prod, dev).
	Env string `env:"ENV" envDefault:"prod"`

	// HTTP holds configuration for the HTTP server (HTTP_ prefix).
	HTTP configs.HTTP `envPrefix:"HTTP_"`

	// Log configures the structured logger (LOG_ prefix).
	Log configs.Logger `envPrefix:"LOG_"`

	// Psql configures the PostgreSQL connection (PSQL_ prefix).
	Psql configs.Postgres `envPrefix:"PSQL_"`

	// Plan is the single home for every probability, threshold and time
	// budget the planner and check-in scheduler consume (PLAN_ prefix).
	Plan configs.Planner `envPrefix:"PLAN_"`

	// Dispatch configures channel fan-out (DISPATCH_ prefix).
	Dispatch configs.Dispatch `envPrefix:"DISPATCH_"`

	// Discovery configures the external Tier 3 provider (DISCOVERY_
	// prefix).
	Discovery configs.Discovery `envPrefix:"DISCOVERY_"`
}

// Load reads configuration from environment variables into a Config. If
// parsing fails, an error is returned. All fields are loaded with their
// specified defaults when no environment variable is provided.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

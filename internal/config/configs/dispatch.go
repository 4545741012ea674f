package configs

import "time"

// Dispatch configures outbound channel fan-out. SendTimeout bounds each
// provider call so a slow channel degrades to a failed attempt instead of
// stalling the campaign.
type Dispatch struct {
	SendTimeout   time.Duration `env:"SEND_TIMEOUT" envDefault:"10s"`
	MaxConcurrent int           `env:"MAX_CONCURRENT" envDefault:"8"`
}

// Discovery configures the Tier 3 external search provider. Timeout bounds
// the search call; on expiry the sourcing engine degrades to Tier 1+2.
type Discovery struct {
	BaseURL string        `env:"BASE_URL" envDefault:"http://localhost:9090"`
	APIKey  string        `env:"API_KEY"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"8s"`
}

package configs

import "time"

// Planner centralises every probability and threshold the planning and
// check-in machinery uses. The response-rate defaults are empirical values
// from the sampled domain, not derived constants; treat them as tuning
// knobs, never as truths baked into code.
type Planner struct {
	// Per-tier expected response probabilities for the N-to-target rule.
	Tier1ResponseRate float64 `env:"TIER1_RESPONSE_RATE" envDefault:"0.90"`
	Tier2ResponseRate float64 `env:"TIER2_RESPONSE_RATE" envDefault:"0.50"`
	Tier3ResponseRate float64 `env:"TIER3_RESPONSE_RATE" envDefault:"0.33"`

	// OnTrackRatio is the actual/expected ratio at or above which a
	// check-in recommends no action.
	OnTrackRatio float64 `env:"ON_TRACK_RATIO" envDefault:"0.8"`

	// CheckpointFractions are the fractions of the time budget at which
	// check-ins fire. Each fires at most once per campaign.
	CheckpointFractions []float64 `env:"CHECKPOINT_FRACTIONS" envDefault:"0.25,0.5,0.75"`

	// CurveSteepness shapes the front-loaded response arrival model
	// 1-exp(-k*f); larger k expects more of the responses earlier.
	CurveSteepness float64 `env:"CURVE_STEEPNESS" envDefault:"3.0"`

	// Severity thresholds for escalation selection. Severity is the
	// response deficit divided by the remaining time fraction, so the same
	// shortfall later in the budget reads as more severe.
	MildSeverity   float64 `env:"MILD_SEVERITY" envDefault:"0.5"`
	SevereSeverity float64 `env:"SEVERE_SEVERITY" envDefault:"1.0"`

	// FrontLoadFactor inflates the initial contractor counts for emergency
	// campaigns. It never changes the bid target itself.
	FrontLoadFactor float64 `env:"FRONT_LOAD_FACTOR" envDefault:"1.5"`

	// CacheTTL bounds the lifetime of tier discovery cache entries.
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"24h"`

	// PollInterval is the check-in scheduler's sweep period.
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"30s"`

	// Time budgets per urgency class.
	EmergencyBudget time.Duration `env:"EMERGENCY_BUDGET" envDefault:"6h"`
	WeekBudget      time.Duration `env:"WEEK_BUDGET" envDefault:"168h"`
	MonthBudget     time.Duration `env:"MONTH_BUDGET" envDefault:"720h"`
	FlexibleBudget  time.Duration `env:"FLEXIBLE_BUDGET" envDefault:"336h"`
}

package usecase

import (
	"slices"
	"time"

	"outreach-engine/internal/config/configs"
	"outreach-engine/internal/core/domain"
)

// Tuning carries every probability and threshold the planner, check-in
// scheduler and escalator share. It is built once from configuration and
// passed in; nothing in this package hardcodes a rate or a fraction.
type Tuning struct {
	TierRates           map[domain.Tier]float64
	OnTrackRatio        float64
	CheckpointFractions []float64
	CurveSteepness      float64
	MildSeverity        float64
	SevereSeverity      float64
	FrontLoadFactor     float64
	CacheTTL            time.Duration
	Budgets             map[domain.Urgency]time.Duration
}

// TuningFromConfig maps the PLAN_ config section onto a Tuning. Checkpoint
// fractions are sorted ascending; the scheduler's early-exit sweep relies
// on that order and the env value does not guarantee it.
func TuningFromConfig(cfg configs.Planner) Tuning {
	fractions := slices.Clone(cfg.CheckpointFractions)
	slices.Sort(fractions)
	return Tuning{
		TierRates: map[domain.Tier]float64{
			domain.Tier1: cfg.Tier1ResponseRate,
			domain.Tier2: cfg.Tier2ResponseRate,
			domain.Tier3: cfg.Tier3ResponseRate,
		},
		OnTrackRatio:        cfg.OnTrackRatio,
		CheckpointFractions: fractions,
		CurveSteepness:      cfg.CurveSteepness,
		MildSeverity:        cfg.MildSeverity,
		SevereSeverity:      cfg.SevereSeverity,
		FrontLoadFactor:     cfg.FrontLoadFactor,
		CacheTTL:            cfg.CacheTTL,
		Budgets: map[domain.Urgency]time.Duration{
			domain.UrgencyEmergency: cfg.EmergencyBudget,
			domain.UrgencyWeek:      cfg.WeekBudget,
			domain.UrgencyMonth:     cfg.MonthBudget,
			domain.UrgencyFlexible:  cfg.FlexibleBudget,
		},
	}
}

// DefaultTuning mirrors the configuration defaults for tests and tools
// that bypass env parsing.
func DefaultTuning() Tuning {
	return Tuning{
		TierRates: map[domain.Tier]float64{
			domain.Tier1: 0.90,
			domain.Tier2: 0.50,
			domain.Tier3: 0.33,
		},
		OnTrackRatio:        0.8,
		CheckpointFractions: []float64{0.25, 0.5, 0.75},
		CurveSteepness:      3.0,
		MildSeverity:        0.5,
		SevereSeverity:      1.0,
		FrontLoadFactor:     1.5,
		CacheTTL:            24 * time.Hour,
		Budgets: map[domain.Urgency]time.Duration{
			domain.UrgencyEmergency: 6 * time.Hour,
			domain.UrgencyWeek:      7 * 24 * time.Hour,
			domain.UrgencyMonth:     30 * 24 * time.Hour,
			domain.UrgencyFlexible:  14 * 24 * time.Hour,
		},
	}
}

// Budget returns the time budget for an urgency class, falling back to the
// flexible budget for unknown values.
func (t Tuning) Budget(u domain.Urgency) time.Duration {
	if d, ok := t.Budgets[u]; ok && d > 0 {
		return d
	}
	return t.Budgets[domain.UrgencyFlexible]
}

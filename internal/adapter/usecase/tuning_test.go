package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"outreach-engine/internal/config/configs"
	"outreach-engine/internal/core/domain"
)

func TestTuningFromConfigSortsCheckpointFractions(t *testing.T) {
	cfg := configs.Planner{
		Tier1ResponseRate:   0.9,
		Tier2ResponseRate:   0.5,
		Tier3ResponseRate:   0.33,
		OnTrackRatio:        0.8,
		CheckpointFractions: []float64{0.75, 0.25, 0.5},
		CurveSteepness:      3,
		MildSeverity:        0.5,
		SevereSeverity:      1,
		FrontLoadFactor:     1.5,
		CacheTTL:            24 * time.Hour,
		EmergencyBudget:     6 * time.Hour,
		WeekBudget:          168 * time.Hour,
		MonthBudget:         720 * time.Hour,
		FlexibleBudget:      336 * time.Hour,
	}

	tuning := TuningFromConfig(cfg)

	// The scheduler stops scanning at the first fraction that is not yet
	// due, so the order must be ascending whatever the env value says.
	assert.Equal(t, []float64{0.25, 0.5, 0.75}, tuning.CheckpointFractions)
	// The input slice is left alone.
	assert.Equal(t, []float64{0.75, 0.25, 0.5}, cfg.CheckpointFractions)
}

func TestTuningBudgetFallsBackToFlexible(t *testing.T) {
	tuning := DefaultTuning()

	assert.Equal(t, 6*time.Hour, tuning.Budget(domain.UrgencyEmergency))
	assert.Equal(t, 14*24*time.Hour, tuning.Budget(domain.Urgency("unknown")))
}

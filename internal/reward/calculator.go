// Package reward converts finished exercise state into earned
// screen-time minutes. Calculate is pure and idempotent; committing
// the result to the wallet is the caller's job.
package reward

import (
	"math"

	"github.com/gymgate/engine/internal/domain"
)

// Calculate derives the reward for an exercise state under the given
// spec. Sessions below the configured minimum earn exactly zero.
func Calculate(state domain.ExerciseState, spec domain.ExerciseSpec) domain.RewardResult {
	units := float64(state.RepCount)
	if spec.Kind == domain.KindHold {
		units = state.HoldSeconds
	}

	result := domain.RewardResult{Type: spec.Type}

	if units < spec.Reward.MinimumUnits {
		return result
	}
	result.MeetsMinimum = true

	bonus := 1.0
	if spec.Reward.BonusMultiplier > 1 && units >= spec.Reward.BonusThreshold {
		bonus = spec.Reward.BonusMultiplier
	}

	result.EarnedMinutes = round1(units * spec.Reward.RatePerUnit * bonus)
	return result
}

// round1 rounds to one decimal place, half away from zero.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

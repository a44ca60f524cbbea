package attribution

import (
	"fmt"
	"math"
)

// Allocate converts a sponsor's effective stake into its percentage of total
// platform stake and its slice of the dedicated sub-pool carved out of the
// window's reward total.
//
// A zero (or negative) total stake means no sponsor has any stake; that
// degrades to a 0% allocation rather than dividing by zero. Non-finite
// inputs fail fast so they never reach persisted state.
func Allocate(effectiveStake, totalStake, windowPoolTotal, dedicatedPercent float64) (owedToDate, percentage float64, err error) {
	for name, v := range map[string]float64{
		"effective stake":   effectiveStake,
		"total stake":       totalStake,
		"window pool total": windowPoolTotal,
		"dedicated percent": dedicatedPercent,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, fmt.Errorf("%w: %s", ErrNonFiniteInput, name)
		}
	}

	if totalStake <= 0 {
		return 0, 0, nil
	}

	percentage = effectiveStake / totalStake * 100
	dedicatedSubPool := windowPoolTotal * dedicatedPercent / 100
	owedToDate = percentage * dedicatedSubPool / 100
	return owedToDate, percentage, nil
}

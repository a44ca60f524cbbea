package payout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sponsorworks/attribution/pkg/attribution"
)

func TestPayout_Calculate(t *testing.T) {
	t.Parallel()

	calc := NewCalculator()

	t.Run("splits author, curator and beneficiaries", func(t *testing.T) {
		t.Parallel()

		breakdown, err := calc.Calculate(attribution.Post{
			ID:                   1,
			PendingPayout:        100,
			CuratorPayoutPct:     25,
			BeneficiaryWeightBps: 2500, // 25% of what remains after curation
		})
		require.NoError(t, err)
		require.Equal(t, float64(100), breakdown.TotalPayout)
		require.Equal(t, float64(25), breakdown.CuratorPayout)
		require.InDelta(t, 18.75, breakdown.BeneficiariesPayout, 1e-9)
		require.InDelta(t, 56.25, breakdown.AuthorPayout, 1e-9)
	})

	t.Run("applies default curator percentage", func(t *testing.T) {
		t.Parallel()

		breakdown, err := calc.Calculate(attribution.Post{ID: 2, PendingPayout: 100})
		require.NoError(t, err)
		require.Equal(t, float64(25), breakdown.CuratorPayout)
		require.Equal(t, float64(75), breakdown.AuthorPayout)
	})

	t.Run("zero payout contributes zero", func(t *testing.T) {
		t.Parallel()

		breakdown, err := calc.Calculate(attribution.Post{ID: 3})
		require.NoError(t, err)
		require.Zero(t, breakdown.AuthorPayout)
	})

	t.Run("rejects malformed records", func(t *testing.T) {
		t.Parallel()

		_, err := calc.Calculate(attribution.Post{ID: 4, PendingPayout: math.NaN()})
		require.Error(t, err)

		_, err = calc.Calculate(attribution.Post{ID: 5, PendingPayout: -1})
		require.Error(t, err)

		_, err = calc.Calculate(attribution.Post{ID: 6, PendingPayout: 10, BeneficiaryWeightBps: 20000})
		require.Error(t, err)
	})
}

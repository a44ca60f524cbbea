package attribution

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocate(t *testing.T) {
	t.Parallel()

	t.Run("reference scenario: 300 and 700 of 1000, pool 500 at 20 percent", func(t *testing.T) {
		t.Parallel()

		owedA, pctA, err := Allocate(300, 1000, 500, 20)
		require.NoError(t, err)
		require.InDelta(t, 30, pctA, 1e-9)
		require.InDelta(t, 30, owedA, 1e-9)

		owedB, pctB, err := Allocate(700, 1000, 500, 20)
		require.NoError(t, err)
		require.InDelta(t, 70, pctB, 1e-9)
		require.InDelta(t, 70, owedB, 1e-9)
	})

	t.Run("percentages sum to 100 across sponsors", func(t *testing.T) {
		t.Parallel()

		stakes := []float64{123.4, 567.8, 90.12, 345.6}
		var total float64
		for _, s := range stakes {
			total += s
		}

		var pctSum float64
		for _, s := range stakes {
			_, pct, err := Allocate(s, total, 1000, 20)
			require.NoError(t, err)
			pctSum += pct
		}
		require.InDelta(t, 100, pctSum, 1e-9)
	})

	t.Run("zero total stake degrades to zero allocation", func(t *testing.T) {
		t.Parallel()

		owed, pct, err := Allocate(0, 0, 500, 20)
		require.NoError(t, err)
		require.Zero(t, owed)
		require.Zero(t, pct)
	})

	t.Run("non-finite inputs fail fast", func(t *testing.T) {
		t.Parallel()

		_, _, err := Allocate(math.NaN(), 1000, 500, 20)
		require.ErrorIs(t, err, ErrNonFiniteInput)

		_, _, err = Allocate(300, math.Inf(1), 500, 20)
		require.ErrorIs(t, err, ErrNonFiniteInput)

		_, _, err = Allocate(300, 1000, math.NaN(), 20)
		require.ErrorIs(t, err, ErrNonFiniteInput)
	})

	t.Run("idempotent for identical inputs", func(t *testing.T) {
		t.Parallel()

		owed1, _, err := Allocate(300, 1000, 500, 20)
		require.NoError(t, err)
		owed2, _, err := Allocate(300, 1000, 500, 20)
		require.NoError(t, err)
		require.Equal(t, Reconcile(owed1, 10), Reconcile(owed2, 10))
	})
}

// Package payout decomposes a post's pending payout into its author,
// curator and beneficiary components. The attribution engine only consumes
// the author component, via the attribution.PayoutCalculator interface.
package payout

import (
	"fmt"
	"math"

	"github.com/sponsorworks/attribution/pkg/attribution"
)

// DefaultCuratorPct applies when a post carries no curator percentage of its
// own.
const DefaultCuratorPct = 25.0

type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate splits the post's pending payout. Beneficiary weights are basis
// points of the total; the curator share is a percentage. The author gets
// the remainder. Malformed records (negative or non-finite amounts, weights
// past 100%) are errors so they fail that sponsor's computation only.
func (c *Calculator) Calculate(post attribution.Post) (attribution.PayoutBreakdown, error) {
	total := post.PendingPayout
	if math.IsNaN(total) || math.IsInf(total, 0) || total < 0 {
		return attribution.PayoutBreakdown{}, fmt.Errorf("post %d: malformed pending payout %v", post.ID, total)
	}

	curatorPct := post.CuratorPayoutPct
	if curatorPct == 0 {
		curatorPct = DefaultCuratorPct
	}
	if curatorPct < 0 || curatorPct > 100 {
		return attribution.PayoutBreakdown{}, fmt.Errorf("post %d: curator percentage %v out of range", post.ID, curatorPct)
	}
	if post.BeneficiaryWeightBps < 0 || post.BeneficiaryWeightBps > 10000 {
		return attribution.PayoutBreakdown{}, fmt.Errorf("post %d: beneficiary weight %d out of range", post.ID, post.BeneficiaryWeightBps)
	}

	curator := total * curatorPct / 100
	beneficiaries := (total - curator) * float64(post.BeneficiaryWeightBps) / 10000
	author := total - curator - beneficiaries
	if author < 0 {
		author = 0
	}

	return attribution.PayoutBreakdown{
		TotalPayout:         total,
		AuthorPayout:        author,
		CuratorPayout:       curator,
		BeneficiariesPayout: beneficiaries,
	}, nil
}

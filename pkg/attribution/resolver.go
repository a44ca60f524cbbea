package attribution

import (
	"fmt"
	"time"

	"github.com/sponsorworks/attribution/pkg/chain"
)

// ResolveDelegation merges a sponsor's direct delegation to the platform
// account with its sub-project delegations into one effective stake and one
// effective window start. A sponsor with no contributing delegations resolves
// to zero shares with the window starting now, so nothing is owed yet.
//
// The chain returns at most one active delegation per (delegator, delegatee)
// pair; duplicates are a data error, not amounts to sum.
func ResolveDelegation(sponsor Sponsor, platformAccount string, delegations []chain.Delegation, now time.Time) (EffectiveDelegation, error) {
	eff := EffectiveDelegation{EarliestStart: now}

	direct, err := findDelegation(delegations, sponsor.Account, platformAccount)
	if err != nil {
		return EffectiveDelegation{}, err
	}
	if direct != nil {
		vests, err := direct.Vests()
		if err != nil {
			return EffectiveDelegation{}, err
		}
		eff.TotalShares = vests
		eff.EarliestStart = direct.MinDelegationTime.Time
	}

	for _, project := range sponsor.Projects {
		routed, err := findDelegation(delegations, sponsor.Account, project.Account)
		if err != nil {
			return EffectiveDelegation{}, err
		}
		if routed == nil {
			continue
		}
		vests, err := routed.Vests()
		if err != nil {
			return EffectiveDelegation{}, err
		}
		eff.TotalShares += vests
		if routed.MinDelegationTime.Time.Before(eff.EarliestStart) {
			eff.EarliestStart = routed.MinDelegationTime.Time
		}
	}

	return eff, nil
}

func findDelegation(delegations []chain.Delegation, delegator, delegatee string) (*chain.Delegation, error) {
	var found *chain.Delegation
	for i := range delegations {
		d := &delegations[i]
		if d.Delegator != delegator || d.Delegatee != delegatee {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %s -> %s", ErrDuplicateDelegation, delegator, delegatee)
		}
		found = d
	}
	return found, nil
}

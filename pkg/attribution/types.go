package attribution

import (
	"context"
	"errors"
	"time"

	"github.com/sponsorworks/attribution/pkg/chain"
)

// Sentinel errors for per-sponsor failure cases. Both are data errors: they
// fail the sponsor's computation for the run, never the run itself.
var (
	// ErrDuplicateDelegation is returned when the chain reports more than one
	// active delegation for the same (delegator, delegatee) pair.
	ErrDuplicateDelegation = errors.New("duplicate active delegation")

	// ErrNonFiniteInput is returned when a NaN or Inf value would otherwise
	// flow into persisted sponsor state.
	ErrNonFiniteInput = errors.New("non-finite numeric input")
)

// CashoutSentinel is the historical timestamp legacy post rows carry in
// cashout_time while their rewards are still pending on-chain. New rows use
// the explicit paid flag; the sentinel survives only at the store boundary.
var CashoutSentinel = time.Date(1969, 12, 31, 23, 59, 59, 0, time.UTC)

// Project is a sub-project associated with a sponsor. Delegations routed to
// the project's chain account count toward the sponsor's effective stake.
type Project struct {
	Name    string `json:"name"`
	Account string `json:"account"`
}

// Sponsor is one platform sponsor. Mutated once per run by the runner.
type Sponsor struct {
	Account                      string
	VestingShares                float64
	PercentageTotalVestingShares float64
	IsWitness                    bool
	TotalPaidRewards             float64
	ShouldReceiveRewards         float64
	Projects                     []Project
}

// Post is one content record contributing to the reward pool.
type Post struct {
	ID                   int64
	Author               string
	Permlink             string
	Created              time.Time
	PendingPayout        float64
	CuratorPayoutPct     float64
	BeneficiaryWeightBps int
	Paid                 bool
}

// RunState is the process-wide checkpoint record, written once per run.
type RunState struct {
	LastCheck time.Time
}

// EffectiveDelegation is a sponsor's merged stake across its direct
// delegation and all sub-project delegations. EarliestStart is the earliest
// contributing start time, so the reward window misses nothing.
type EffectiveDelegation struct {
	TotalShares   float64
	EarliestStart time.Time
}

// PayoutBreakdown is the decomposition of a post's pending payout.
type PayoutBreakdown struct {
	TotalPayout         float64
	AuthorPayout        float64
	CuratorPayout       float64
	BeneficiariesPayout float64
}

// ChainClient is the chain query surface the runner depends on.
type ChainClient interface {
	GetVestingDelegations(ctx context.Context, account, from string, limit int) ([]chain.Delegation, error)
	GetWitnessByAccount(ctx context.Context, account string) (*chain.Witness, error)
}

// Store is the document-store surface the runner depends on.
type Store interface {
	ListSponsors(ctx context.Context) ([]Sponsor, error)
	SaveSponsor(ctx context.Context, sponsor Sponsor) error
	CountPendingPosts(ctx context.Context, since time.Time) (int, error)
	ListPendingPosts(ctx context.Context, since time.Time, skip, limit int) ([]Post, error)
	GetRunState(ctx context.Context) (RunState, error)
	SaveRunState(ctx context.Context, state RunState) error
}

// PayoutCalculator computes a post's payout decomposition.
type PayoutCalculator interface {
	Calculate(post Post) (PayoutBreakdown, error)
}

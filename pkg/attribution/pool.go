package attribution

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RewardPool sums the author payouts earned inside a delegation window and
// not yet finalized on-chain.
type RewardPool struct {
	log    *slog.Logger
	store  Store
	payout PayoutCalculator
}

func NewRewardPool(log *slog.Logger, store Store, payout PayoutCalculator) *RewardPool {
	return &RewardPool{
		log:    log,
		store:  store,
		payout: payout,
	}
}

// Collect returns the total author payout of pending posts created at or
// after windowStart. An empty window is a valid result of 0.
func (p *RewardPool) Collect(ctx context.Context, windowStart time.Time) (float64, error) {
	count, err := p.store.CountPendingPosts(ctx, windowStart)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending posts: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	posts, err := p.store.ListPendingPosts(ctx, windowStart, 0, count)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending posts: %w", err)
	}

	var total float64
	for _, post := range posts {
		breakdown, err := p.payout.Calculate(post)
		if err != nil {
			return 0, fmt.Errorf("failed to calculate payout for post %d: %w", post.ID, err)
		}
		total += breakdown.AuthorPayout
	}

	p.log.Debug("pool: collected window", "window_start", windowStart, "posts", len(posts), "total", total)
	return total, nil
}

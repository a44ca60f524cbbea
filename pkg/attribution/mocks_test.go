package attribution

import (
	"context"
	"time"

	"github.com/sponsorworks/attribution/pkg/chain"
)

type mockChain struct {
	getVestingDelegationsFunc func(ctx context.Context, account, from string, limit int) ([]chain.Delegation, error)
	getWitnessByAccountFunc   func(ctx context.Context, account string) (*chain.Witness, error)
}

func (m *mockChain) GetVestingDelegations(ctx context.Context, account, from string, limit int) ([]chain.Delegation, error) {
	if m.getVestingDelegationsFunc != nil {
		return m.getVestingDelegationsFunc(ctx, account, from, limit)
	}
	return nil, nil
}

func (m *mockChain) GetWitnessByAccount(ctx context.Context, account string) (*chain.Witness, error) {
	if m.getWitnessByAccountFunc != nil {
		return m.getWitnessByAccountFunc(ctx, account)
	}
	return nil, nil
}

type mockStore struct {
	listSponsorsFunc      func(ctx context.Context) ([]Sponsor, error)
	saveSponsorFunc       func(ctx context.Context, sponsor Sponsor) error
	countPendingPostsFunc func(ctx context.Context, since time.Time) (int, error)
	listPendingPostsFunc  func(ctx context.Context, since time.Time, skip, limit int) ([]Post, error)
	getRunStateFunc       func(ctx context.Context) (RunState, error)
	saveRunStateFunc      func(ctx context.Context, state RunState) error
}

func (m *mockStore) ListSponsors(ctx context.Context) ([]Sponsor, error) {
	if m.listSponsorsFunc != nil {
		return m.listSponsorsFunc(ctx)
	}
	return nil, nil
}

func (m *mockStore) SaveSponsor(ctx context.Context, sponsor Sponsor) error {
	if m.saveSponsorFunc != nil {
		return m.saveSponsorFunc(ctx, sponsor)
	}
	return nil
}

func (m *mockStore) CountPendingPosts(ctx context.Context, since time.Time) (int, error) {
	if m.countPendingPostsFunc != nil {
		return m.countPendingPostsFunc(ctx, since)
	}
	return 0, nil
}

func (m *mockStore) ListPendingPosts(ctx context.Context, since time.Time, skip, limit int) ([]Post, error) {
	if m.listPendingPostsFunc != nil {
		return m.listPendingPostsFunc(ctx, since, skip, limit)
	}
	return nil, nil
}

func (m *mockStore) GetRunState(ctx context.Context) (RunState, error) {
	if m.getRunStateFunc != nil {
		return m.getRunStateFunc(ctx)
	}
	return RunState{}, nil
}

func (m *mockStore) SaveRunState(ctx context.Context, state RunState) error {
	if m.saveRunStateFunc != nil {
		return m.saveRunStateFunc(ctx, state)
	}
	return nil
}

type mockPayout struct {
	calculateFunc func(post Post) (PayoutBreakdown, error)
}

func (m *mockPayout) Calculate(post Post) (PayoutBreakdown, error) {
	if m.calculateFunc != nil {
		return m.calculateFunc(post)
	}
	return PayoutBreakdown{AuthorPayout: post.PendingPayout}, nil
}

func vestsDelegation(delegator, delegatee, shares string, start time.Time) chain.Delegation {
	return chain.Delegation{
		Delegator:         delegator,
		Delegatee:         delegatee,
		VestingShares:     shares,
		MinDelegationTime: chain.ChainTime{Time: start},
	}
}

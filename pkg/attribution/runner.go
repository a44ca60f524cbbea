package attribution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sponsorworks/attribution/pkg/metrics"
)

const (
	DefaultDedicatedPercent   = 20.0
	DefaultDelegationPageSize = 1000
	DefaultChainRatePerSecond = 1.0
	DefaultMaxConcurrency     = 4
)

type RunnerConfig struct {
	Logger *slog.Logger
	Clock  clockwork.Clock
	Chain  ChainClient
	Store  Store
	Payout PayoutCalculator

	// PlatformAccount is the designated receiving account direct sponsor
	// delegations point at.
	PlatformAccount string

	// DedicatedPercent is the fraction of realized author rewards set aside
	// for sponsor redistribution.
	DedicatedPercent float64

	// DelegationPageSize bounds the outbound-delegation fetch per sponsor.
	DelegationPageSize int

	// ChainRatePerSecond throttles chain API calls across all sponsor
	// branches. MaxConcurrency bounds how many sponsor branches run at once.
	ChainRatePerSecond float64
	MaxConcurrency     int

	// UseCheckpoint uses the previous run's last-check time as the reward
	// window lower bound when it is later than the delegation window start.
	// Off by default: a full recompute from the delegation window.
	UseCheckpoint bool

	// Interval is the period between runs when the runner is started as a
	// loop rather than invoked once.
	Interval time.Duration
}

func (cfg *RunnerConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Chain == nil {
		return errors.New("chain client is required")
	}
	if cfg.Store == nil {
		return errors.New("store is required")
	}
	if cfg.Payout == nil {
		return errors.New("payout calculator is required")
	}
	if cfg.PlatformAccount == "" {
		return errors.New("platform account is required")
	}
	if cfg.Interval <= 0 {
		return errors.New("interval must be greater than 0")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.DedicatedPercent == 0 {
		cfg.DedicatedPercent = DefaultDedicatedPercent
	}
	if cfg.DelegationPageSize <= 0 {
		cfg.DelegationPageSize = DefaultDelegationPageSize
	}
	if cfg.ChainRatePerSecond <= 0 {
		cfg.ChainRatePerSecond = DefaultChainRatePerSecond
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	return nil
}

// Summary is the structured result of one attribution run.
type Summary struct {
	Sponsors       int
	Processed      int
	Failed         int
	ZeroStake      int
	TotalStake     float64
	NewlyAllocated float64
	Duration       time.Duration
}

// Runner executes attribution runs: for every sponsor it resolves effective
// delegation, collects the windowed reward pool, allocates the dedicated
// share, reconciles against prior payments and persists the result. Sponsor
// failures are isolated; the run always finalizes after every sponsor has
// been attempted.
type Runner struct {
	log     *slog.Logger
	cfg     RunnerConfig
	limiter *rate.Limiter
	pool    *RewardPool

	runMu     sync.Mutex
	readyOnce sync.Once
	readyCh   chan struct{}
}

func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{
		log:     cfg.Logger,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.ChainRatePerSecond), 1),
		pool:    NewRewardPool(cfg.Logger, cfg.Store, cfg.Payout),
		readyCh: make(chan struct{}),
	}, nil
}

// Ready reports whether at least one run has completed.
func (r *Runner) Ready() bool {
	select {
	case <-r.readyCh:
		return true
	default:
		return false
	}
}

func (r *Runner) WaitReady(ctx context.Context) error {
	select {
	case <-r.readyCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while waiting for runner: %w", ctx.Err())
	}
}

// Start runs immediately, then on every interval tick until ctx is done.
func (r *Runner) Start(ctx context.Context) {
	go func() {
		r.log.Info("runner: starting run loop", "interval", r.cfg.Interval)

		r.safeRun(ctx)

		ticker := r.cfg.Clock.NewTicker(r.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				r.safeRun(ctx)
			}
		}
	}()
}

func (r *Runner) safeRun(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("runner: run panicked", "panic", p)
			metrics.RunTotal.WithLabelValues("panic").Inc()
		}
	}()

	if _, err := r.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		r.log.Error("runner: run failed", "error", err)
	}
}

// Run executes a single attribution run across all sponsors.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	start := time.Now()
	r.log.Debug("runner: run started")

	state, err := r.cfg.Store.GetRunState(ctx)
	if err != nil {
		metrics.RunTotal.WithLabelValues("error").Inc()
		return Summary{}, fmt.Errorf("failed to load run state: %w", err)
	}
	if !state.LastCheck.IsZero() {
		r.log.Debug("runner: previous run", "last_check", state.LastCheck)
	}

	sponsors, err := r.cfg.Store.ListSponsors(ctx)
	if err != nil {
		metrics.RunTotal.WithLabelValues("error").Inc()
		return Summary{}, fmt.Errorf("failed to list sponsors: %w", err)
	}

	summary := Summary{Sponsors: len(sponsors)}
	if len(sponsors) == 0 {
		summary.Duration = time.Since(start)
		r.readyOnce.Do(func() { close(r.readyCh) })
		r.log.Info("runner: no sponsors registered, nothing to do")
		metrics.RunTotal.WithLabelValues("success").Inc()
		return summary, nil
	}

	// Snapshot of total stake from last-known sponsor records, computed once
	// before any fetch. Every sponsor branch reads this, none mutates it.
	for _, sponsor := range sponsors {
		summary.TotalStake += sponsor.VestingShares
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MaxConcurrency)

	for _, sponsor := range sponsors {
		g.Go(func() error {
			result, err := r.processSponsor(gctx, sponsor, summary.TotalStake, state)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				r.log.Error("runner: sponsor failed", "account", sponsor.Account, "error", err)
				metrics.SponsorsProcessedTotal.WithLabelValues("error").Inc()
				summary.Failed++
				return nil
			}
			metrics.SponsorsProcessedTotal.WithLabelValues("success").Inc()
			summary.Processed++
			if result.zeroStake {
				summary.ZeroStake++
			}
			summary.NewlyAllocated += result.newlyAllocated
			return nil
		})
	}

	// Wait-for-all barrier: finalize only after every sponsor has been
	// attempted, whether it succeeded or was recorded as failed.
	if err := g.Wait(); err != nil {
		metrics.RunTotal.WithLabelValues("cancelled").Inc()
		return summary, fmt.Errorf("run aborted: %w", err)
	}

	if err := r.cfg.Store.SaveRunState(ctx, RunState{LastCheck: r.cfg.Clock.Now()}); err != nil {
		metrics.RunTotal.WithLabelValues("error").Inc()
		return summary, fmt.Errorf("failed to save run state: %w", err)
	}

	summary.Duration = time.Since(start)
	r.readyOnce.Do(func() { close(r.readyCh) })

	metrics.RunTotal.WithLabelValues("success").Inc()
	metrics.RunDuration.Observe(summary.Duration.Seconds())
	metrics.AllocatedRewards.Set(summary.NewlyAllocated)
	r.log.Info("runner: run completed",
		"sponsors", summary.Sponsors,
		"processed", summary.Processed,
		"failed", summary.Failed,
		"zero_stake", summary.ZeroStake,
		"newly_allocated", summary.NewlyAllocated,
		"duration", summary.Duration.String(),
	)
	return summary, nil
}

type sponsorResult struct {
	zeroStake      bool
	newlyAllocated float64
}

func (r *Runner) processSponsor(ctx context.Context, sponsor Sponsor, totalStake float64, state RunState) (sponsorResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return sponsorResult{}, err
	}
	delegations, err := r.cfg.Chain.GetVestingDelegations(ctx, sponsor.Account, "", r.cfg.DelegationPageSize)
	if err != nil {
		return sponsorResult{}, err
	}

	eff, err := ResolveDelegation(sponsor, r.cfg.PlatformAccount, delegations, r.cfg.Clock.Now())
	if err != nil {
		return sponsorResult{}, err
	}

	// Witness status is informational. A failed lookup must not block the
	// stake and reward computation.
	isWitness := false
	if err := r.limiter.Wait(ctx); err != nil {
		return sponsorResult{}, err
	}
	witness, err := r.cfg.Chain.GetWitnessByAccount(ctx, sponsor.Account)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return sponsorResult{}, err
		}
		r.log.Warn("runner: witness lookup failed, assuming not a witness", "account", sponsor.Account, "error", err)
	} else {
		isWitness = witness != nil && witness.Owner != ""
	}

	result := sponsorResult{}
	if eff.TotalShares > 0 {
		windowStart := eff.EarliestStart
		if r.cfg.UseCheckpoint && state.LastCheck.After(windowStart) {
			windowStart = state.LastCheck
		}

		poolTotal, err := r.pool.Collect(ctx, windowStart)
		if err != nil {
			return sponsorResult{}, err
		}

		owedToDate, percentage, err := Allocate(eff.TotalShares, totalStake, poolTotal, r.cfg.DedicatedPercent)
		if err != nil {
			return sponsorResult{}, err
		}

		sponsor.VestingShares = eff.TotalShares
		sponsor.PercentageTotalVestingShares = percentage
		sponsor.ShouldReceiveRewards = Reconcile(owedToDate, sponsor.TotalPaidRewards)
		result.newlyAllocated = sponsor.ShouldReceiveRewards
	} else {
		sponsor.VestingShares = 0
		sponsor.PercentageTotalVestingShares = 0
		sponsor.ShouldReceiveRewards = 0
		result.zeroStake = true
	}
	sponsor.IsWitness = isWitness

	if err := r.cfg.Store.SaveSponsor(ctx, sponsor); err != nil {
		return sponsorResult{}, fmt.Errorf("failed to save sponsor: %w", err)
	}
	return result, nil
}

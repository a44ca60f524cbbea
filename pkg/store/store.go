// Package store persists sponsors, posts and the run checkpoint in Postgres.
// It implements the attribution.Store interface.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sponsorworks/attribution/pkg/attribution"
)

type Store struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func New(log *slog.Logger, pool *pgxpool.Pool) *Store {
	return &Store{
		log:  log,
		pool: pool,
	}
}

func (s *Store) ListSponsors(ctx context.Context) ([]attribution.Sponsor, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT account, vesting_shares, percentage_total_vesting_shares,
		       is_witness, total_paid_rewards, should_receive_rewards, projects
		FROM sponsors
		ORDER BY account`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sponsors: %w", err)
	}
	defer rows.Close()

	var sponsors []attribution.Sponsor
	for rows.Next() {
		var sponsor attribution.Sponsor
		var projects []byte
		if err := rows.Scan(
			&sponsor.Account,
			&sponsor.VestingShares,
			&sponsor.PercentageTotalVestingShares,
			&sponsor.IsWitness,
			&sponsor.TotalPaidRewards,
			&sponsor.ShouldReceiveRewards,
			&projects,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sponsor: %w", err)
		}
		if err := json.Unmarshal(projects, &sponsor.Projects); err != nil {
			return nil, fmt.Errorf("failed to decode projects for %s: %w", sponsor.Account, err)
		}
		sponsors = append(sponsors, sponsor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sponsors: %w", err)
	}
	return sponsors, nil
}

func (s *Store) SaveSponsor(ctx context.Context, sponsor attribution.Sponsor) error {
	projects := sponsor.Projects
	if projects == nil {
		projects = []attribution.Project{}
	}
	encoded, err := json.Marshal(projects)
	if err != nil {
		return fmt.Errorf("failed to encode projects for %s: %w", sponsor.Account, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO sponsors (account, vesting_shares, percentage_total_vesting_shares,
		                      is_witness, total_paid_rewards, should_receive_rewards,
		                      projects, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (account) DO UPDATE SET
			vesting_shares                  = EXCLUDED.vesting_shares,
			percentage_total_vesting_shares = EXCLUDED.percentage_total_vesting_shares,
			is_witness                      = EXCLUDED.is_witness,
			total_paid_rewards              = EXCLUDED.total_paid_rewards,
			should_receive_rewards          = EXCLUDED.should_receive_rewards,
			projects                        = EXCLUDED.projects,
			updated_at                      = now()`,
		sponsor.Account,
		sponsor.VestingShares,
		sponsor.PercentageTotalVestingShares,
		sponsor.IsWitness,
		sponsor.TotalPaidRewards,
		sponsor.ShouldReceiveRewards,
		encoded,
	)
	if err != nil {
		return fmt.Errorf("failed to save sponsor %s: %w", sponsor.Account, err)
	}
	return nil
}

func (s *Store) CountPendingPosts(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM posts WHERE created >= $1 AND NOT paid`, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending posts: %w", err)
	}
	return count, nil
}

func (s *Store) ListPendingPosts(ctx context.Context, since time.Time, skip, limit int) ([]attribution.Post, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, author, permlink, created, pending_payout,
		       curator_payout_pct, beneficiary_weight_bps, paid
		FROM posts
		WHERE created >= $1 AND NOT paid
		ORDER BY created, id
		OFFSET $2 LIMIT $3`, since, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending posts: %w", err)
	}
	defer rows.Close()

	var posts []attribution.Post
	for rows.Next() {
		var post attribution.Post
		if err := rows.Scan(
			&post.ID,
			&post.Author,
			&post.Permlink,
			&post.Created,
			&post.PendingPayout,
			&post.CuratorPayoutPct,
			&post.BeneficiaryWeightBps,
			&post.Paid,
		); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read posts: %w", err)
	}
	return posts, nil
}

// SavePost upserts a post record, keyed by (author, permlink). Used by the
// ingestion side and by tests; the runner itself only reads posts.
func (s *Store) SavePost(ctx context.Context, post attribution.Post) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO posts (author, permlink, created, pending_payout,
		                   curator_payout_pct, beneficiary_weight_bps, paid)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (author, permlink) DO UPDATE SET
			pending_payout         = EXCLUDED.pending_payout,
			curator_payout_pct     = EXCLUDED.curator_payout_pct,
			beneficiary_weight_bps = EXCLUDED.beneficiary_weight_bps,
			paid                   = EXCLUDED.paid`,
		post.Author,
		post.Permlink,
		post.Created,
		post.PendingPayout,
		post.CuratorPayoutPct,
		post.BeneficiaryWeightBps,
		post.Paid,
	)
	if err != nil {
		return fmt.Errorf("failed to save post %s/%s: %w", post.Author, post.Permlink, err)
	}
	return nil
}

func (s *Store) GetRunState(ctx context.Context) (attribution.RunState, error) {
	var state attribution.RunState
	err := s.pool.QueryRow(ctx,
		`SELECT last_check FROM run_state WHERE id = 1`,
	).Scan(&state.LastCheck)
	if errors.Is(err, pgx.ErrNoRows) {
		// First run: no checkpoint yet.
		return attribution.RunState{}, nil
	}
	if err != nil {
		return attribution.RunState{}, fmt.Errorf("failed to get run state: %w", err)
	}
	return state, nil
}

func (s *Store) SaveRunState(ctx context.Context, state attribution.RunState) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO run_state (id, last_check, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET
			last_check = EXCLUDED.last_check,
			updated_at = now()`,
		state.LastCheck,
	)
	if err != nil {
		return fmt.Errorf("failed to save run state: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UsageRepository reads the per-month first-contact counters. Increments only
// ever happen inside MessageRepository.CreateMetered, atomically with the
// message insert; this repository is the read side used by the advisory
// admission check and the quota dashboard.
type UsageRepository interface {
	// GetMonthlyUsage returns the first-contact count for the given month key.
	// An absent row counts as zero.
	GetMonthlyUsage(ctx context.Context, userID, monthYear string) (int, error)
}

type usageRepo struct {
	pool *pgxpool.Pool
}

// NewUsageRepo creates a new UsageRepository.
func NewUsageRepo(pool *pgxpool.Pool) UsageRepository {
	return &usageRepo{pool: pool}
}

func (r *usageRepo) GetMonthlyUsage(ctx context.Context, userID, monthYear string) (int, error) {
	const q = `
        SELECT message_count
        FROM message_usage
        WHERE user_id = $1 AND month_year = $2
    `
	var count int
	err := r.pool.QueryRow(ctx, q, userID, monthYear).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("fetching message usage for user %s in %s: %w", userID, monthYear, err)
	}
	return count, nil
}


package profileRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"veilslot/models"
	"veilslot/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ ProfileRepository = (*PostgresProfileRepo)(nil)

// PostgresProfileRepo implements ProfileRepository on PostgreSQL.
type PostgresProfileRepo struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresProfileRepo(pool *pgxpool.Pool, timeout time.Duration) *PostgresProfileRepo {
	return &PostgresProfileRepo{pool: pool, timeout: timeout}
}

func (r *PostgresProfileRepo) Exists(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM client_profiles WHERE id=$1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check profile %s: %w", id, err)
	}
	return exists, nil
}

func (r *PostgresProfileRepo) EnsureMinimal(ctx context.Context, id, role string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `INSERT INTO client_profiles (id, role) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, id, role)
	if err != nil {
		return fmt.Errorf("failed to create profile %s: %w", id, err)
	}
	return nil
}

func (r *PostgresProfileRepo) Get(ctx context.Context, id string) (*models.ClientProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var p models.ClientProfile
	err := r.pool.QueryRow(ctx, `
SELECT id, role, total_sessions, total_spent::text, created_at, updated_at
  FROM client_profiles WHERE id=$1`, id).
		Scan(&p.ID, &p.Role, &p.TotalSessions, &p.TotalSpent, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch profile %s: %w", id, err)
	}
	if units, perr := utils.ParsePrice(p.TotalSpent); perr == nil {
		p.TotalSpent = utils.FormatPrice(units)
	}
	return &p, nil
}

func (r *PostgresProfileRepo) UpdateStats(ctx context.Context, id string, totalSessions int64, totalSpent string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
UPDATE client_profiles SET total_sessions=$2, total_spent=$3::text::numeric, updated_at=now() WHERE id=$1`,
		id, totalSessions, totalSpent)
	if err != nil {
		return fmt.Errorf("failed to update stats for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

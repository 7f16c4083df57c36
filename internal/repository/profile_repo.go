package repository

import (
	"context"
	"errors"
	"fmt"

	"app/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const profileColumns = `id, user_id, email, user_type, role, display_name, avatar_url, bio, category, city, date_of_birth, suspended, suspended_at, suspended_reason, created_at, updated_at`

// ProfileRepository defines methods for accessing member profiles.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, p *model.Profile) (*model.Profile, error)
	// GetProfileByUserID returns the user's profile, or nil when none exists.
	GetProfileByUserID(ctx context.Context, userID string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, p *model.Profile) (*model.Profile, error)
	SetAvatarURL(ctx context.Context, userID, avatarURL string) error
	// SetSuspended flips the suspension flag; reason is cleared on reinstatement.
	SetSuspended(ctx context.Context, userID string, suspended bool, reason string) error
}

type profileRepo struct {
	pool *pgxpool.Pool
}

// NewProfileRepo creates a new ProfileRepository.
func NewProfileRepo(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepo{pool: pool}
}

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var p model.Profile
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Email,
		&p.UserType,
		&p.Role,
		&p.DisplayName,
		&p.AvatarURL,
		&p.Bio,
		&p.Category,
		&p.City,
		&p.DateOfBirth,
		&p.Suspended,
		&p.SuspendedAt,
		&p.SuspendedReason,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepo) CreateProfile(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	q := fmt.Sprintf(`
		INSERT INTO profiles (user_id, email, user_type, role, display_name, category, city, date_of_birth)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s
	`, profileColumns)
	created, err := scanProfile(r.pool.QueryRow(ctx, q, p.UserID, p.Email, p.UserType, p.Role, p.DisplayName, p.Category, p.City, p.DateOfBirth))
	if err != nil {
		return nil, fmt.Errorf("creating profile for user %s: %w", p.UserID, err)
	}
	return created, nil
}

func (r *profileRepo) GetProfileByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	q := fmt.Sprintf(`SELECT %s FROM profiles WHERE user_id = $1`, profileColumns)
	p, err := scanProfile(r.pool.QueryRow(ctx, q, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching profile for user %s: %w", userID, err)
	}
	return p, nil
}

func (r *profileRepo) UpdateProfile(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	q := fmt.Sprintf(`
		UPDATE profiles
		SET display_name = $2,
		    bio = $3,
		    category = $4,
		    city = $5,
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING %s
	`, profileColumns)
	updated, err := scanProfile(r.pool.QueryRow(ctx, q, p.UserID, p.DisplayName, p.Bio, p.Category, p.City))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("profile not found for user %s", p.UserID)
		}
		return nil, fmt.Errorf("updating profile for user %s: %w", p.UserID, err)
	}
	return updated, nil
}

func (r *profileRepo) SetAvatarURL(ctx context.Context, userID, avatarURL string) error {
	const q = `UPDATE profiles SET avatar_url = $2, updated_at = NOW() WHERE user_id = $1`
	result, err := r.pool.Exec(ctx, q, userID, avatarURL)
	if err != nil {
		return fmt.Errorf("updating avatar for user %s: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("profile not found for user %s", userID)
	}
	return nil
}

func (r *profileRepo) SetSuspended(ctx context.Context, userID string, suspended bool, reason string) error {
	const q = `
		UPDATE profiles
		SET suspended = $2,
		    suspended_at = CASE WHEN $2 THEN NOW() ELSE NULL END,
		    suspended_reason = CASE WHEN $2 THEN $3 ELSE NULL END,
		    updated_at = NOW()
		WHERE user_id = $1
	`
	result, err := r.pool.Exec(ctx, q, userID, suspended, reason)
	if err != nil {
		return fmt.Errorf("updating suspension for user %s: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("profile not found for user %s", userID)
	}
	return nil
}

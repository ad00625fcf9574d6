package store

import (
	"context"
	"fmt"
	"time"

	"donorbridge/internal/utils"
	"donorbridge/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

const profileTableName = "donorbridge.profiles"

var profileColumns = utils.Columns(types.Profile{})

type ProfileRepository struct {
	db DB
}

func NewProfileRepository(db DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Profile(ctx context.Context, id string) (*types.Profile, error) {
	query, args, err := psql().
		Select(profileColumns...).
		From(profileTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate profile query: %w", err)
	}

	var profile types.Profile
	err = pgxscan.Get(ctx, conn(ctx, r.db), &profile, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	return &profile, nil
}

func (r *ProfileRepository) ProfilesByRole(ctx context.Context, role types.Role) ([]*types.Profile, error) {
	query, args, err := psql().
		Select(profileColumns...).
		From(profileTableName).
		Where(sq.Eq{"role": role}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate profiles-by-role query: %w", err)
	}

	var profiles []*types.Profile
	err = pgxscan.Select(ctx, conn(ctx, r.db), &profiles, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profiles by role: %w", err)
	}

	return profiles, nil
}

func (r *ProfileRepository) CreateProfile(ctx context.Context, profile *types.Profile) error {
	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	query, args, err := psql().
		Insert(profileTableName).
		SetMap(utils.ColumnMap(profile)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create profile query: %w", err)
	}

	_, err = conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

// UpsertStaffProfile creates or refreshes an admin/approver profile. Role is
// only written on insert.
func (r *ProfileRepository) UpsertStaffProfile(ctx context.Context, profile *types.Profile) error {
	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	query, args, err := psql().
		Insert(profileTableName).
		SetMap(utils.ColumnMap(profile)).
		Suffix("ON CONFLICT (id) DO UPDATE SET " + buildUpdateClause([]string{"email", "full_name", "is_active", "updated_at"})).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate upsert profile query: %w", err)
	}

	_, err = conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	return nil
}

func (r *ProfileRepository) UpdateProfile(ctx context.Context, id string, update *types.ProfileUpdate) error {
	fields := utils.UpdateMap(update)
	fields["updated_at"] = time.Now()

	query, args, err := psql().
		Update(profileTableName).
		SetMap(fields).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update profile query: %w", err)
	}

	tag, err := conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrProfileNotFound
	}

	return nil
}

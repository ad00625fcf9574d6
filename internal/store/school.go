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

const schoolTableName = "donorbridge.schools"

var schoolColumns = utils.Columns(types.School{})

type SchoolRepository struct {
	db DB
}

func NewSchoolRepository(db DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

func (r *SchoolRepository) School(ctx context.Context, id string) (*types.School, error) {
	query, args, err := psql().
		Select(schoolColumns...).
		From(schoolTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate school query: %w", err)
	}

	var school types.School
	err = pgxscan.Get(ctx, conn(ctx, r.db), &school, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrSchoolNotFound
		}
		return nil, fmt.Errorf("failed to fetch school: %w", err)
	}

	return &school, nil
}

func (r *SchoolRepository) SchoolsByStatus(ctx context.Context, status types.VerificationStatus) ([]*types.School, error) {
	query, args, err := psql().
		Select(schoolColumns...).
		From(schoolTableName).
		Where(sq.Eq{"approval_status": status}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate schools-by-status query: %w", err)
	}

	var schools []*types.School
	err = pgxscan.Select(ctx, conn(ctx, r.db), &schools, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schools by status: %w", err)
	}

	return schools, nil
}

func (r *SchoolRepository) CreateSchool(ctx context.Context, school *types.School) error {
	now := time.Now()
	school.CreatedAt = now
	school.UpdatedAt = now

	query, args, err := psql().
		Insert(schoolTableName).
		SetMap(utils.ColumnMap(school)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create school query: %w", err)
	}

	_, err = conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create school: %w", err)
	}

	return nil
}

func (r *SchoolRepository) UpdateSchool(ctx context.Context, id string, update *types.SchoolUpdate) error {
	fields := utils.UpdateMap(update)
	fields["updated_at"] = time.Now()

	query, args, err := psql().
		Update(schoolTableName).
		SetMap(fields).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update school query: %w", err)
	}

	tag, err := conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update school: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrSchoolNotFound
	}

	return nil
}

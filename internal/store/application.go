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

const applicationTableName = "donorbridge.resource_applications"

var applicationColumns = utils.Columns(types.ResourceApplication{})

type ApplicationRepository struct {
	db DB
}

func NewApplicationRepository(db DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Application(ctx context.Context, id string) (*types.ResourceApplication, error) {
	query, args, err := psql().
		Select(applicationColumns...).
		From(applicationTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate application query: %w", err)
	}

	var application types.ResourceApplication
	err = pgxscan.Get(ctx, conn(ctx, r.db), &application, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to fetch application: %w", err)
	}

	return &application, nil
}

func (r *ApplicationRepository) ApplicationsBySchool(ctx context.Context, schoolID string) ([]*types.ResourceApplication, error) {
	query, args, err := psql().
		Select(applicationColumns...).
		From(applicationTableName).
		Where(sq.Eq{"school_id": schoolID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate applications-by-school query: %w", err)
	}

	var applications = make([]*types.ResourceApplication, 0)
	err = pgxscan.Select(ctx, conn(ctx, r.db), &applications, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch applications by school: %w", err)
	}

	return applications, nil
}

func (r *ApplicationRepository) CreateApplication(ctx context.Context, application *types.ResourceApplication) error {
	now := time.Now()
	application.ID = utils.NanoID()
	application.CreatedAt = now
	application.UpdatedAt = now
	if application.ItemsNeeded == nil {
		application.ItemsNeeded = []string{}
	}

	query, args, err := psql().
		Insert(applicationTableName).
		SetMap(utils.ColumnMap(application)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert application query: %w", err)
	}

	_, err = conn(ctx, r.db).Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create application")
}

// TransitionApplication applies update only while the application is in one
// of the from statuses.
func (r *ApplicationRepository) TransitionApplication(ctx context.Context, id string, from []types.ApplicationStatus, update *types.ApplicationUpdate) error {
	fields := utils.UpdateMap(update)
	fields["updated_at"] = time.Now()

	query, args, err := psql().
		Update(applicationTableName).
		SetMap(fields).
		Where(sq.Eq{"id": id, "status": from}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate application transition query: %w", err)
	}

	tag, err := conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrStaleTransition
	}

	return nil
}

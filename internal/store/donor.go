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

const donorTableName = "donorbridge.donors"

var donorColumns = utils.Columns(types.Donor{})

type DonorRepository struct {
	db DB
}

func NewDonorRepository(db DB) *DonorRepository {
	return &DonorRepository{db: db}
}

func (r *DonorRepository) Donor(ctx context.Context, id string) (*types.Donor, error) {
	query, args, err := psql().
		Select(donorColumns...).
		From(donorTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate donor query: %w", err)
	}

	var donor types.Donor
	err = pgxscan.Get(ctx, conn(ctx, r.db), &donor, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrDonorNotFound
		}
		return nil, fmt.Errorf("failed to fetch donor: %w", err)
	}

	return &donor, nil
}

func (r *DonorRepository) DonorsByStatus(ctx context.Context, status types.VerificationStatus) ([]*types.Donor, error) {
	query, args, err := psql().
		Select(donorColumns...).
		From(donorTableName).
		Where(sq.Eq{"verification_status": status}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate donors-by-status query: %w", err)
	}

	var donors []*types.Donor
	err = pgxscan.Select(ctx, conn(ctx, r.db), &donors, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch donors by status: %w", err)
	}

	return donors, nil
}

func (r *DonorRepository) CreateDonor(ctx context.Context, donor *types.Donor) error {
	now := time.Now()
	donor.CreatedAt = now
	donor.UpdatedAt = now

	query, args, err := psql().
		Insert(donorTableName).
		SetMap(utils.ColumnMap(donor)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create donor query: %w", err)
	}

	_, err = conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create donor: %w", err)
	}

	return nil
}

func (r *DonorRepository) UpdateDonor(ctx context.Context, id string, update *types.DonorUpdate) error {
	fields := utils.UpdateMap(update)
	fields["updated_at"] = time.Now()

	query, args, err := psql().
		Update(donorTableName).
		SetMap(fields).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update donor query: %w", err)
	}

	tag, err := conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update donor: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrDonorNotFound
	}

	return nil
}

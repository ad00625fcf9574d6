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

const donationTableName = "donorbridge.donations"

var donationColumns = utils.Columns(types.Donation{})

type DonationRepository struct {
	db DB
}

func NewDonationRepository(db DB) *DonationRepository {
	return &DonationRepository{db: db}
}

func (r *DonationRepository) Donation(ctx context.Context, id string) (*types.Donation, error) {
	query, args, err := psql().
		Select(donationColumns...).
		From(donationTableName).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate donation query: %w", err)
	}

	var donation types.Donation
	err = pgxscan.Get(ctx, conn(ctx, r.db), &donation, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrDonationNotFound
		}
		return nil, fmt.Errorf("failed to fetch donation: %w", err)
	}

	return &donation, nil
}

// DonationWithDonor loads a donation together with the donor's contact details.
func (r *DonationRepository) DonationWithDonor(ctx context.Context, id string) (*types.DonationWithDonor, error) {
	columns := append(utils.PrefixColumns("d", donationColumns), "p.email AS donor_email", "p.full_name AS donor_name")

	query, args, err := psql().
		Select(columns...).
		From(donationTableName + " d").
		Join(profileTableName + " p ON p.id = d.donor_id").
		Where(sq.Eq{"d.id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate donation with donor query: %w", err)
	}

	var donation types.DonationWithDonor
	err = pgxscan.Get(ctx, conn(ctx, r.db), &donation, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrDonationNotFound
		}
		return nil, fmt.Errorf("failed to fetch donation with donor: %w", err)
	}

	return &donation, nil
}

func (r *DonationRepository) DonationsByApprovalStatus(ctx context.Context, status types.ApprovalStatus) ([]*types.Donation, error) {
	query, args, err := psql().
		Select(donationColumns...).
		From(donationTableName).
		Where(sq.Eq{"approval_status": status}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate donations-by-status query: %w", err)
	}

	var donations = make([]*types.Donation, 0)
	err = pgxscan.Select(ctx, conn(ctx, r.db), &donations, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch donations by status: %w", err)
	}

	return donations, nil
}

func (r *DonationRepository) DonationsByDonor(ctx context.Context, donorID string) ([]*types.Donation, error) {
	query, args, err := psql().
		Select(donationColumns...).
		From(donationTableName).
		Where(sq.Eq{"donor_id": donorID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate donations-by-donor query: %w", err)
	}

	var donations = make([]*types.Donation, 0)
	err = pgxscan.Select(ctx, conn(ctx, r.db), &donations, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch donations by donor: %w", err)
	}

	return donations, nil
}

func (r *DonationRepository) CreateDonation(ctx context.Context, donation *types.Donation) error {
	now := time.Now()
	donation.ID = utils.NanoID()
	donation.CreatedAt = now
	donation.UpdatedAt = now
	if donation.Items == nil {
		donation.Items = []types.DonationItem{}
	}

	query, args, err := psql().
		Insert(donationTableName).
		SetMap(utils.ColumnMap(donation)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert donation query: %w", err)
	}

	_, err = conn(ctx, r.db).Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create donation")
}

// TransitionApproval applies update only while the donation still has the
// approval status the caller observed.
func (r *DonationRepository) TransitionApproval(ctx context.Context, id string, from types.ApprovalStatus, update *types.DonationUpdate) error {
	return r.transition(ctx, sq.Eq{"id": id, "approval_status": from}, update)
}

// TransitionStatus is the lifecycle counterpart of TransitionApproval.
func (r *DonationRepository) TransitionStatus(ctx context.Context, id string, from types.DonationStatus, update *types.DonationUpdate) error {
	return r.transition(ctx, sq.Eq{"id": id, "status": from}, update)
}

func (r *DonationRepository) transition(ctx context.Context, where sq.Eq, update *types.DonationUpdate) error {
	fields := utils.UpdateMap(update)
	fields["updated_at"] = time.Now()

	query, args, err := psql().
		Update(donationTableName).
		SetMap(fields).
		Where(where).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate donation transition query: %w", err)
	}

	tag, err := conn(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update donation: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrStaleTransition
	}

	return nil
}

package store

import (
	"context"
	"fmt"

	"donorbridge/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

// DriftedProfiles lists profiles whose verification flags disagree with the
// donor or school record of the same id, or whose is_active does not follow
// the record status.
func (r *ProfileRepository) DriftedProfiles(ctx context.Context, role types.Role) ([]*types.VerificationDrift, error) {
	var table, statusColumn string
	switch role {
	case types.RoleDonor:
		table, statusColumn = donorTableName, "verification_status"
	case types.RoleSchool:
		table, statusColumn = schoolTableName, "approval_status"
	default:
		return nil, fmt.Errorf("role %q has no verification record", role)
	}

	query, args, err := psql().
		Select(
			"p.id AS profile_id",
			"p.role",
			"p.verification_status AS profile_status",
			"p.is_verified AS profile_verified",
			"r."+statusColumn+" AS record_status",
			"r.is_verified AS record_verified",
			"r.verified_by AS record_verified_by",
			"r.verified_at AS record_verified_at",
		).
		From(profileTableName + " p").
		Join(table + " r ON r.id = p.id").
		Where(sq.Or{
			sq.Expr("p.verification_status IS DISTINCT FROM r." + statusColumn),
			sq.Expr("p.is_verified <> r.is_verified"),
			sq.Expr("p.is_active IS DISTINCT FROM (r." + statusColumn + " = 'approved')"),
		}).
		OrderBy("p.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate drift query: %w", err)
	}

	var drifts = make([]*types.VerificationDrift, 0)
	err = pgxscan.Select(ctx, conn(ctx, r.db), &drifts, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch drifted profiles: %w", err)
	}

	return drifts, nil
}

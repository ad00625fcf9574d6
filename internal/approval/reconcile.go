package approval

import (
	"context"
	"fmt"

	"donorbridge/internal/utils"
	"donorbridge/pkg/types"

	"github.com/sirupsen/logrus"
)

type ReconcileReport struct {
	Checked  int `json:"checked"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

// Reconcile rewrites profile verification fields that drifted from the donor
// or school record. The role record is the source of truth. It runs outside
// any user session and returns a plain error for the caller to log.
func (s *Service) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	report := new(ReconcileReport)

	for _, role := range []types.Role{types.RoleDonor, types.RoleSchool} {
		drifts, err := s.Profiles.DriftedProfiles(ctx, role)
		if err != nil {
			return report, fmt.Errorf("failed to list drifted %s profiles: %w", role, err)
		}

		for _, drift := range drifts {
			report.Checked++

			entry := s.logger.WithFields(logrus.Fields{
				"profile_id":     drift.ProfileID,
				"role":           drift.Role,
				"profile_status": utils.Deref(drift.ProfileStatus),
				"record_status":  drift.RecordStatus,
			})

			if err := s.Profiles.UpdateProfile(ctx, drift.ProfileID, repairFor(drift)); err != nil {
				report.Failed++
				entry.WithError(err).Error("failed to repair profile verification")
				continue
			}

			report.Repaired++
			entry.Info("repaired profile verification")
		}
	}

	return report, nil
}

func repairFor(drift *types.VerificationDrift) *types.ProfileUpdate {
	return &types.ProfileUpdate{
		IsVerified:         utils.Ptr(drift.RecordVerified),
		VerificationStatus: utils.Ptr(drift.RecordStatus),
		VerifiedBy:         drift.RecordVerifiedBy,
		VerifiedAt:         drift.RecordVerifiedAt,
		IsActive:           utils.Ptr(drift.RecordStatus == types.VerificationApproved),
	}
}

package approval

import (
	"context"
	"errors"
	"strings"
	"time"

	"donorbridge/internal/utils"
	"donorbridge/pkg/types"
)

const defaultSchoolRejection = "Application did not meet verification requirements"

// verdict is the outcome written to both the role record and the mirrored
// profile fields.
type verdict struct {
	status   types.VerificationStatus
	verified bool
	active   bool
	reason   *string
}

func approvedVerdict() verdict {
	return verdict{status: types.VerificationApproved, verified: true, active: true}
}

func rejectedVerdict(reason string) verdict {
	return verdict{status: types.VerificationRejected, reason: utils.Ptr(reason)}
}

func (v verdict) profileUpdate(actorID string, at time.Time) *types.ProfileUpdate {
	return &types.ProfileUpdate{
		IsActive:           utils.Ptr(v.active),
		IsVerified:         utils.Ptr(v.verified),
		VerificationStatus: utils.Ptr(v.status),
		VerifiedBy:         utils.Ptr(actorID),
		VerifiedAt:         utils.Ptr(at),
	}
}

type PendingVerifications struct {
	Donors  []*types.Donor  `json:"donors"`
	Schools []*types.School `json:"schools"`
}

func (s *Service) ApproveDonor(ctx context.Context, donorID string) Result {
	return s.run("approve_donor", func() (any, error) {
		return s.decideDonor(ctx, donorID, approvedVerdict())
	})
}

func (s *Service) RejectDonor(ctx context.Context, donorID, reason string) Result {
	return s.run("reject_donor", func() (any, error) {
		return s.decideDonor(ctx, donorID, rejectedVerdict(reason))
	})
}

func (s *Service) decideDonor(ctx context.Context, donorID string, v verdict) (*types.Donor, error) {
	actor, err := s.actor(ctx, types.RoleAdmin)
	if err != nil {
		return nil, err
	}

	if v.status == types.VerificationRejected {
		reason, err := requireReason(utils.Deref(v.reason))
		if err != nil {
			return nil, err
		}
		v.reason = utils.Ptr(reason)
	}

	donor, err := s.Donors.Donor(ctx, donorID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	err = s.Tx.InTx(ctx, func(ctx context.Context) error {
		err := s.Donors.UpdateDonor(ctx, donorID, &types.DonorUpdate{
			IsVerified:         utils.Ptr(v.verified),
			VerificationStatus: utils.Ptr(v.status),
			VerifiedBy:         utils.Ptr(actor.ID),
			VerifiedAt:         utils.Ptr(now),
			RejectionReason:    v.reason,
		})
		if err != nil {
			return err
		}

		return s.mirrorProfile(ctx, donorID, actor.ID, v, now)
	})
	if err != nil {
		return nil, err
	}

	donor.IsVerified = v.verified
	donor.VerificationStatus = v.status
	donor.VerifiedBy = utils.Ptr(actor.ID)
	donor.VerifiedAt = utils.Ptr(now)
	if v.reason != nil {
		donor.RejectionReason = v.reason
	}

	notice := types.Notice{EntityID: donor.ID, Name: donor.FullName}
	s.notifyVerification(ctx, notice, v, types.NoticeDonorApproved, types.NoticeDonorRejected)

	return donor, nil
}

func (s *Service) ApproveSchool(ctx context.Context, schoolID string) Result {
	return s.run("approve_school", func() (any, error) {
		return s.decideSchool(ctx, schoolID, approvedVerdict())
	})
}

// RejectSchool falls back to a stock reason when none is given.
func (s *Service) RejectSchool(ctx context.Context, schoolID, reason string) Result {
	return s.run("reject_school", func() (any, error) {
		reason = strings.TrimSpace(reason)
		if reason == "" {
			reason = defaultSchoolRejection
		}
		return s.decideSchool(ctx, schoolID, rejectedVerdict(reason))
	})
}

func (s *Service) decideSchool(ctx context.Context, schoolID string, v verdict) (*types.School, error) {
	actor, err := s.actor(ctx, types.RoleAdmin)
	if err != nil {
		return nil, err
	}

	school, err := s.Schools.School(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	err = s.Tx.InTx(ctx, func(ctx context.Context) error {
		err := s.Schools.UpdateSchool(ctx, schoolID, &types.SchoolUpdate{
			ApprovalStatus:  utils.Ptr(v.status),
			IsVerified:      utils.Ptr(v.verified),
			VerifiedBy:      utils.Ptr(actor.ID),
			VerifiedAt:      utils.Ptr(now),
			RejectionReason: v.reason,
		})
		if err != nil {
			return err
		}

		return s.mirrorProfile(ctx, schoolID, actor.ID, v, now)
	})
	if err != nil {
		return nil, err
	}

	school.ApprovalStatus = v.status
	school.IsVerified = v.verified
	school.VerifiedBy = utils.Ptr(actor.ID)
	school.VerifiedAt = utils.Ptr(now)
	if v.reason != nil {
		school.RejectionReason = v.reason
	}

	notice := types.Notice{EntityID: school.ID, Name: school.SchoolName}
	s.notifyVerification(ctx, notice, v, types.NoticeSchoolApproved, types.NoticeSchoolRejected)

	return school, nil
}

// mirrorProfile is the second half of a verification dual write. Any failure
// here happens after the role record was written, so it is reported as a
// partial update and the surrounding transaction is rolled back.
func (s *Service) mirrorProfile(ctx context.Context, profileID, actorID string, v verdict, now time.Time) error {
	if err := s.Profiles.UpdateProfile(ctx, profileID, v.profileUpdate(actorID, now)); err != nil {
		return partialUpdate(err, "Verification for %s was recorded but its profile could not be updated.", profileID)
	}
	return nil
}

func (s *Service) notifyVerification(ctx context.Context, notice types.Notice, v verdict, approved, rejected types.NoticeEvent) {
	profile, err := s.Profiles.Profile(ctx, notice.EntityID)
	if err != nil {
		if !errors.Is(err, types.ErrProfileNotFound) {
			s.logger.WithError(err).WithField("profile_id", notice.EntityID).Warn("failed to load profile for notice")
		}
		return
	}
	notice.Email = profile.Email

	if v.status == types.VerificationApproved {
		notice.Event = approved
		s.notifyApproval(ctx, notice)
		return
	}

	notice.Event = rejected
	notice.Reason = utils.Deref(v.reason)
	s.notifyRejection(ctx, notice)
}

// PendingVerifications lists donors and schools awaiting an admin decision.
func (s *Service) PendingVerifications(ctx context.Context) Result {
	return s.run("pending_verifications", func() (any, error) {
		if _, err := s.actor(ctx, types.RoleAdmin); err != nil {
			return nil, err
		}

		donors, err := s.Donors.DonorsByStatus(ctx, types.VerificationPending)
		if err != nil {
			return nil, err
		}

		schools, err := s.Schools.SchoolsByStatus(ctx, types.VerificationPending)
		if err != nil {
			return nil, err
		}

		return &PendingVerifications{Donors: donors, Schools: schools}, nil
	})
}

package approval

import (
	"context"
	"strings"

	"donorbridge/internal/utils"
	"donorbridge/pkg/types"
)

// AttachDocument records the storage key of the signed-in donor's or school's
// verification document. Approved records are locked.
func (s *Service) AttachDocument(ctx context.Context, key string) Result {
	return s.run("attach_document", func() (any, error) {
		actor, err := s.documentOwner(ctx)
		if err != nil {
			return nil, err
		}

		key = strings.TrimSpace(key)
		if key == "" {
			return nil, validation("A document is required.")
		}

		switch actor.Role {
		case types.RoleDonor:
			donor, err := s.Donors.Donor(ctx, actor.ID)
			if err != nil {
				return nil, err
			}
			if donor.VerificationStatus == types.VerificationApproved {
				return nil, invalidState("Verified donors cannot replace their documents.")
			}
			return key, s.Donors.UpdateDonor(ctx, actor.ID, &types.DonorUpdate{KYCDocumentKey: utils.Ptr(key)})
		default:
			school, err := s.Schools.School(ctx, actor.ID)
			if err != nil {
				return nil, err
			}
			if school.ApprovalStatus == types.VerificationApproved {
				return nil, invalidState("Verified schools cannot replace their documents.")
			}
			return key, s.Schools.UpdateSchool(ctx, actor.ID, &types.SchoolUpdate{DocumentKey: utils.Ptr(key)})
		}
	})
}

// documentOwner resolves a donor or school actor. Unlike actor it admits
// inactive profiles, since documents are uploaded before verification.
func (s *Service) documentOwner(ctx context.Context) (*types.Profile, error) {
	identity, err := s.identity.CurrentUser(ctx)
	if err != nil || identity == nil {
		return nil, unauthenticated(err)
	}

	profile, err := s.Profiles.Profile(ctx, identity.ID)
	if err != nil {
		return nil, err
	}

	if profile.Role != types.RoleDonor && profile.Role != types.RoleSchool {
		return nil, unauthorized("Only donors and schools upload verification documents.")
	}

	return profile, nil
}

// DocumentKey returns the verification document key of a donor or school.
// Admins may read any key, donors and schools only their own.
func (s *Service) DocumentKey(ctx context.Context, profileID string) Result {
	return s.run("document_key", func() (any, error) {
		identity, err := s.identity.CurrentUser(ctx)
		if err != nil || identity == nil {
			return nil, unauthenticated(err)
		}

		if identity.ID != profileID {
			if _, err := s.actor(ctx, types.RoleAdmin); err != nil {
				return nil, err
			}
		}

		target, err := s.Profiles.Profile(ctx, profileID)
		if err != nil {
			return nil, err
		}

		var key *string
		switch target.Role {
		case types.RoleDonor:
			donor, err := s.Donors.Donor(ctx, profileID)
			if err != nil {
				return nil, err
			}
			key = donor.KYCDocumentKey
		case types.RoleSchool:
			school, err := s.Schools.School(ctx, profileID)
			if err != nil {
				return nil, err
			}
			key = school.DocumentKey
		}

		if key == nil {
			return nil, types.ErrDocumentNotFound
		}
		return *key, nil
	})
}

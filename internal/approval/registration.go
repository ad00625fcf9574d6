package approval

import (
	"context"
	"net/mail"
	"strings"

	"donorbridge/internal/utils"
	"donorbridge/pkg/types"

	"github.com/sirupsen/logrus"
)

type RegisterInput struct {
	Email    string     `json:"email" form:"email"`
	Password string     `json:"password" form:"password"`
	FullName string     `json:"fullName" form:"full_name"`
	Role     types.Role `json:"role" form:"role"`

	Phone      string `json:"phone" form:"phone"`
	NationalID string `json:"nationalId" form:"national_id"`
	Address    string `json:"address" form:"address"`

	SchoolName         string `json:"schoolName" form:"school_name"`
	RegistrationNumber string `json:"registrationNumber" form:"registration_number"`
}

type StaffInput struct {
	Email    string     `json:"email" form:"email"`
	FullName string     `json:"fullName" form:"full_name"`
	Role     types.Role `json:"role" form:"role"`
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", validation("Enter a valid email address.")
	}
	return email, nil
}

// RegisterAccount signs up a donor or school. The new profile starts inactive
// and unverified until an admin decides on it.
func (s *Service) RegisterAccount(ctx context.Context, input RegisterInput) Result {
	return s.run("register_account", func() (any, error) {
		if input.Role != types.RoleDonor && input.Role != types.RoleSchool {
			return nil, validation("Accounts can only be registered as donor or school.")
		}

		email, err := normalizeEmail(input.Email)
		if err != nil {
			return nil, err
		}

		fullName := strings.TrimSpace(input.FullName)
		if fullName == "" {
			return nil, validation("Full name is required.")
		}

		schoolName := strings.TrimSpace(input.SchoolName)
		if input.Role == types.RoleSchool && schoolName == "" {
			return nil, validation("School name is required.")
		}

		if input.Password == "" {
			return nil, validation("A password is required.")
		}

		userID, err := s.registrar.SignUp(ctx, email, input.Password, fullName)
		if err != nil {
			return nil, err
		}

		profile := &types.Profile{
			ID:                 userID,
			Email:              email,
			Role:               input.Role,
			FullName:           fullName,
			VerificationStatus: utils.Ptr(types.VerificationPending),
		}

		err = s.Tx.InTx(ctx, func(ctx context.Context) error {
			if err := s.Profiles.CreateProfile(ctx, profile); err != nil {
				return err
			}

			if input.Role == types.RoleDonor {
				return s.Donors.CreateDonor(ctx, &types.Donor{
					ID:                 userID,
					FullName:           fullName,
					Phone:              utils.TrimmedPtr(input.Phone),
					NationalID:         utils.TrimmedPtr(input.NationalID),
					Address:            utils.TrimmedPtr(input.Address),
					VerificationStatus: types.VerificationPending,
				})
			}

			return s.Schools.CreateSchool(ctx, &types.School{
				ID:                 userID,
				SchoolName:         schoolName,
				RegistrationNumber: utils.TrimmedPtr(input.RegistrationNumber),
				Address:            utils.TrimmedPtr(input.Address),
				ContactPhone:       utils.TrimmedPtr(input.Phone),
				ApprovalStatus:     types.VerificationPending,
			})
		})
		if err != nil {
			// the identity already exists upstream; an operator has to retry or remove it
			s.logger.WithError(err).WithFields(logrus.Fields{
				"user_id": userID,
				"role":    input.Role,
			}).Error("identity created without local records")
			return nil, err
		}

		return profile, nil
	})
}

// CreateStaffAccount provisions an admin or approver. Staff profiles are
// active and verified from the start.
func (s *Service) CreateStaffAccount(ctx context.Context, input StaffInput) Result {
	return s.run("create_staff_account", func() (any, error) {
		actor, err := s.actor(ctx, types.RoleAdmin)
		if err != nil {
			return nil, err
		}

		if !input.Role.IsStaff() {
			return nil, validation("Staff accounts must be admin or approver.")
		}

		email, err := normalizeEmail(input.Email)
		if err != nil {
			return nil, err
		}

		fullName := strings.TrimSpace(input.FullName)
		if fullName == "" {
			return nil, validation("Full name is required.")
		}

		userID, err := s.registrar.CreateStaff(ctx, email, fullName)
		if err != nil {
			return nil, err
		}

		now := s.now()
		profile := &types.Profile{
			ID:                 userID,
			Email:              email,
			Role:               input.Role,
			FullName:           fullName,
			IsActive:           true,
			IsVerified:         true,
			VerificationStatus: utils.Ptr(types.VerificationApproved),
			VerifiedBy:         utils.Ptr(actor.ID),
			VerifiedAt:         utils.Ptr(now),
			CreatedBy:          utils.Ptr(actor.ID),
		}

		if err := s.Profiles.CreateProfile(ctx, profile); err != nil {
			return nil, err
		}

		return profile, nil
	})
}

// StaffAccounts lists admin and approver profiles.
func (s *Service) StaffAccounts(ctx context.Context) Result {
	return s.run("staff_accounts", func() (any, error) {
		if _, err := s.actor(ctx, types.RoleAdmin); err != nil {
			return nil, err
		}

		var staff []*types.Profile
		for _, role := range []types.Role{types.RoleAdmin, types.RoleApprover} {
			profiles, err := s.Profiles.ProfilesByRole(ctx, role)
			if err != nil {
				return nil, err
			}
			staff = append(staff, profiles...)
		}

		return staff, nil
	})
}

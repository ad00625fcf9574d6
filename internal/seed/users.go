// Package seed loads staff accounts and demo records for local development.
package seed

import (
	"context"
	"errors"
	"fmt"

	"donorbridge/internal/utils"
	"donorbridge/pkg/types"

	"github.com/sirupsen/logrus"
)

type ProfileRepository interface {
	Profile(ctx context.Context, id string) (*types.Profile, error)
	CreateProfile(ctx context.Context, profile *types.Profile) error
	UpsertStaffProfile(ctx context.Context, profile *types.Profile) error
}

type DonorRepository interface {
	CreateDonor(ctx context.Context, donor *types.Donor) error
}

type SchoolRepository interface {
	CreateSchool(ctx context.Context, school *types.School) error
}

type Repositories struct {
	Profiles ProfileRepository
	Donors   DonorRepository
	Schools  SchoolRepository
}

type fakeUserSeed struct {
	ID       string
	Email    string
	FullName string
	Role     types.Role
	Status   types.VerificationStatus
	School   string
}

// Staff ids match the Cognito subjects of the development user pool.
var staffUsers = []fakeUserSeed{
	{ID: "11111111-1111-1111-1111-111111111111", Email: "admin+seed@donorbridge.dev", FullName: "Amara Okafor", Role: types.RoleAdmin},
	{ID: "22222222-2222-2222-2222-222222222222", Email: "approver+seed@donorbridge.dev", FullName: "Tunde Bello", Role: types.RoleApprover},
}

var fakeUsers = []fakeUserSeed{
	{ID: "33333333-3333-3333-3333-333333333333", Email: "ava.williams+seed@example.com", FullName: "Ava Williams", Role: types.RoleDonor, Status: types.VerificationApproved},
	{ID: "44444444-4444-4444-4444-444444444444", Email: "liam.johnson+seed@example.com", FullName: "Liam Johnson", Role: types.RoleDonor, Status: types.VerificationPending},
	{ID: "55555555-5555-5555-5555-555555555555", Email: "head+hilltop@example.com", FullName: "Mia Davis", Role: types.RoleSchool, Status: types.VerificationApproved, School: "Hilltop Primary School"},
	{ID: "66666666-6666-6666-6666-666666666666", Email: "head+riverside@example.com", FullName: "Noah Brown", Role: types.RoleSchool, Status: types.VerificationPending, School: "Riverside Community School"},
}

// SeedStaff upserts the admin and approver profiles. Existing rows keep their
// role.
func SeedStaff(ctx context.Context, repos Repositories, logger *logrus.Logger) error {
	for _, user := range staffUsers {
		profile := &types.Profile{
			ID:                 user.ID,
			Email:              user.Email,
			Role:               user.Role,
			FullName:           user.FullName,
			IsActive:           true,
			IsVerified:         true,
			VerificationStatus: utils.Ptr(types.VerificationApproved),
		}

		if err := repos.Profiles.UpsertStaffProfile(ctx, profile); err != nil {
			return fmt.Errorf("failed to seed staff user %s: %w", user.ID, err)
		}
	}

	logger.WithField("count", len(staffUsers)).Info("staff users seeded")
	return nil
}

// SeedFakeUsers creates demo donors and schools that do not exist yet.
func SeedFakeUsers(ctx context.Context, repos Repositories, logger *logrus.Logger) error {
	seeded := 0
	for _, user := range fakeUsers {
		_, err := repos.Profiles.Profile(ctx, user.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, types.ErrProfileNotFound) {
			return fmt.Errorf("failed to fetch fake user %s: %w", user.ID, err)
		}

		if err := createFakeUser(ctx, repos, user); err != nil {
			return err
		}
		seeded++
	}

	logger.WithField("count", seeded).Info("fake users seeded")
	return nil
}

func createFakeUser(ctx context.Context, repos Repositories, user fakeUserSeed) error {
	approved := user.Status == types.VerificationApproved
	staffID := staffUsers[0].ID

	var verifiedBy *string
	if approved {
		verifiedBy = utils.Ptr(staffID)
	}

	profile := &types.Profile{
		ID:                 user.ID,
		Email:              user.Email,
		Role:               user.Role,
		FullName:           user.FullName,
		IsActive:           approved,
		IsVerified:         approved,
		VerificationStatus: utils.Ptr(user.Status),
		VerifiedBy:         verifiedBy,
	}
	if err := repos.Profiles.CreateProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to create fake profile %s: %w", user.ID, err)
	}

	var err error
	switch user.Role {
	case types.RoleDonor:
		err = repos.Donors.CreateDonor(ctx, &types.Donor{
			ID:                 user.ID,
			FullName:           user.FullName,
			IsVerified:         approved,
			VerificationStatus: user.Status,
			VerifiedBy:         verifiedBy,
		})
	case types.RoleSchool:
		err = repos.Schools.CreateSchool(ctx, &types.School{
			ID:             user.ID,
			SchoolName:     user.School,
			ApprovalStatus: user.Status,
			IsVerified:     approved,
			VerifiedBy:     verifiedBy,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to create fake %s record %s: %w", user.Role, user.ID, err)
	}

	return nil
}

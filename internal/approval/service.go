// Package approval enforces who may move donors, schools, donations,
// resource applications and matches between states, and performs those
// transitions.
package approval

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"donorbridge/pkg/types"

	"github.com/sirupsen/logrus"
)

type IdentityProvider interface {
	CurrentUser(ctx context.Context) (*types.Identity, error)
}

type IdentityRegistrar interface {
	SignUp(ctx context.Context, email, password, fullName string) (string, error)
	CreateStaff(ctx context.Context, email, fullName string) (string, error)
}

type Notifier interface {
	SendApproval(ctx context.Context, notice types.Notice) error
	SendRejection(ctx context.Context, notice types.Notice) error
}

type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type ProfileStore interface {
	Profile(ctx context.Context, id string) (*types.Profile, error)
	ProfilesByRole(ctx context.Context, role types.Role) ([]*types.Profile, error)
	CreateProfile(ctx context.Context, profile *types.Profile) error
	UpdateProfile(ctx context.Context, id string, update *types.ProfileUpdate) error
	DriftedProfiles(ctx context.Context, role types.Role) ([]*types.VerificationDrift, error)
}

type DonorStore interface {
	Donor(ctx context.Context, id string) (*types.Donor, error)
	DonorsByStatus(ctx context.Context, status types.VerificationStatus) ([]*types.Donor, error)
	CreateDonor(ctx context.Context, donor *types.Donor) error
	UpdateDonor(ctx context.Context, id string, update *types.DonorUpdate) error
}

type SchoolStore interface {
	School(ctx context.Context, id string) (*types.School, error)
	SchoolsByStatus(ctx context.Context, status types.VerificationStatus) ([]*types.School, error)
	CreateSchool(ctx context.Context, school *types.School) error
	UpdateSchool(ctx context.Context, id string, update *types.SchoolUpdate) error
}

type DonationStore interface {
	Donation(ctx context.Context, id string) (*types.Donation, error)
	DonationWithDonor(ctx context.Context, id string) (*types.DonationWithDonor, error)
	DonationsByApprovalStatus(ctx context.Context, status types.ApprovalStatus) ([]*types.Donation, error)
	DonationsByDonor(ctx context.Context, donorID string) ([]*types.Donation, error)
	CreateDonation(ctx context.Context, donation *types.Donation) error
	TransitionApproval(ctx context.Context, id string, from types.ApprovalStatus, update *types.DonationUpdate) error
	TransitionStatus(ctx context.Context, id string, from types.DonationStatus, update *types.DonationUpdate) error
}

type ApplicationStore interface {
	Application(ctx context.Context, id string) (*types.ResourceApplication, error)
	ApplicationsBySchool(ctx context.Context, schoolID string) ([]*types.ResourceApplication, error)
	CreateApplication(ctx context.Context, application *types.ResourceApplication) error
	TransitionApplication(ctx context.Context, id string, from []types.ApplicationStatus, update *types.ApplicationUpdate) error
}

type MatchStore interface {
	Match(ctx context.Context, id string) (*types.Match, error)
	MatchesByDonation(ctx context.Context, donationID string) ([]*types.Match, error)
	CreateMatch(ctx context.Context, match *types.Match) error
	TransitionMatch(ctx context.Context, id string, from types.MatchStatus, update *types.MatchUpdate) error
}

// Stores groups the repositories the orchestrator writes through. Tx must
// make the repositories join its transaction via the callback context.
type Stores struct {
	Tx           TxRunner
	Profiles     ProfileStore
	Donors       DonorStore
	Schools      SchoolStore
	Donations    DonationStore
	Applications ApplicationStore
	Matches      MatchStore
}

type Service struct {
	Stores

	identity  IdentityProvider
	registrar IdentityRegistrar
	notifier  Notifier
	logger    *logrus.Logger
	now       func() time.Time
}

func New(stores Stores, identity IdentityProvider, registrar IdentityRegistrar, notifier Notifier, logger *logrus.Logger) *Service {
	return &Service{
		Stores:    stores,
		identity:  identity,
		registrar: registrar,
		notifier:  notifier,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// run executes op and folds its outcome, including panics, into a Result.
func (s *Service) run(op string, fn func() (any, error)) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithFields(logrus.Fields{
				"op":    op,
				"panic": r,
			}).Error("operation panicked")
			res = Result{Kind: KindUnexpected, Error: genericFailure}
		}
	}()

	data, err := fn()
	if err == nil {
		return Result{Success: true, Data: data}
	}

	kind := KindOf(err)
	entry := s.logger.WithError(err).WithFields(logrus.Fields{
		"op":   op,
		"kind": kind,
	})

	switch kind {
	case KindUnexpected, KindPartialUpdate:
		entry.Error("operation failed")
	default:
		entry.Info("operation refused")
	}

	return Result{Kind: kind, Error: publicMessage(kind, err)}
}

// actor resolves the signed-in user's profile from the session carried by
// ctx and checks it holds one of roles. Caller-supplied ids are never trusted.
func (s *Service) actor(ctx context.Context, roles ...types.Role) (*types.Profile, error) {
	identity, err := s.identity.CurrentUser(ctx)
	if err != nil || identity == nil {
		return nil, unauthenticated(err)
	}

	profile, err := s.Profiles.Profile(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, types.ErrProfileNotFound) {
			return nil, unauthorized("No profile exists for the signed-in account.")
		}
		return nil, fmt.Errorf("failed to load actor profile: %w", err)
	}

	if len(roles) > 0 && !slices.Contains(roles, profile.Role) {
		return nil, unauthorized(fmt.Sprintf("This action requires the %s role.", joinRoles(roles)))
	}

	if !profile.IsActive {
		return nil, unauthorized("This account is not active.")
	}

	return profile, nil
}

func joinRoles(roles []types.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, " or ")
}

func requireReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", validation("A rejection reason is required.")
	}
	return reason, nil
}

// notifyApproval and notifyRejection are fire-and-forget: a transition that
// already committed stays committed when delivery fails.
func (s *Service) notifyApproval(ctx context.Context, notice types.Notice) {
	notice.OccurredAt = s.now()
	if err := s.notifier.SendApproval(ctx, notice); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event":     notice.Event,
			"entity_id": notice.EntityID,
		}).Warn("failed to send approval notice")
	}
}

func (s *Service) notifyRejection(ctx context.Context, notice types.Notice) {
	notice.OccurredAt = s.now()
	if err := s.notifier.SendRejection(ctx, notice); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event":     notice.Event,
			"entity_id": notice.EntityID,
		}).Warn("failed to send rejection notice")
	}
}

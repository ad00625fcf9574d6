package approval

import (
	"context"
	"fmt"
	"strings"

	"donorbridge/internal/utils"
	"donorbridge/pkg/types"
)

type DonationInput struct {
	Title       string               `json:"title" form:"title"`
	Description string               `json:"description" form:"description"`
	Items       []types.DonationItem `json:"items" form:"items"`
}

// ReviewStage selects a donation review queue.
type ReviewStage string

const (
	StageScreening ReviewStage = "screening"
	StageFinal     ReviewStage = "final"
)

// ApproveDonation is the admin screening step. The donation keeps status
// pending and waits for an approver.
func (s *Service) ApproveDonation(ctx context.Context, donationID string) Result {
	return s.run("approve_donation", func() (any, error) {
		actor, err := s.actor(ctx, types.RoleAdmin)
		if err != nil {
			return nil, err
		}

		donation, err := s.Donations.DonationWithDonor(ctx, donationID)
		if err != nil {
			return nil, err
		}

		if donation.ApprovalStatus != types.ApprovalPending {
			return nil, invalidState("Donation is %s and cannot be screened.", donation.ApprovalStatus)
		}

		now := s.now()
		err = s.Donations.TransitionApproval(ctx, donationID, types.ApprovalPending, &types.DonationUpdate{
			ApprovalStatus: utils.Ptr(types.ApprovalPendingFinalApproval),
			Status:         utils.Ptr(types.DonationStatusPending),
			ReviewedBy:     utils.Ptr(actor.ID),
			ReviewedAt:     utils.Ptr(now),
		})
		if err != nil {
			return nil, err
		}

		s.notifyApproval(ctx, types.Notice{
			Event:    types.NoticeDonationScreened,
			EntityID: donation.ID,
			Email:    donation.DonorEmail,
			Name:     donation.DonorName,
			Title:    donation.Title,
		})

		donation.ApprovalStatus = types.ApprovalPendingFinalApproval
		donation.Status = types.DonationStatusPending
		donation.ReviewedBy = utils.Ptr(actor.ID)
		donation.ReviewedAt = utils.Ptr(now)
		return &donation.Donation, nil
	})
}

func (s *Service) RejectDonation(ctx context.Context, donationID, reason string) Result {
	return s.run("reject_donation", func() (any, error) {
		actor, err := s.actor(ctx, types.RoleAdmin)
		if err != nil {
			return nil, err
		}

		reason, err := requireReason(reason)
		if err != nil {
			return nil, err
		}

		donation, err := s.Donations.DonationWithDonor(ctx, donationID)
		if err != nil {
			return nil, err
		}

		if donation.ApprovalStatus != types.ApprovalPending {
			return nil, invalidState("Donation is %s and cannot be rejected at screening.", donation.ApprovalStatus)
		}

		return s.rejectDonation(ctx, actor, donation, types.ApprovalPending, reason, false)
	})
}

// FinalApproveDonation is the approver step. Only donations that passed
// screening are eligible.
func (s *Service) FinalApproveDonation(ctx context.Context, donationID string) Result {
	return s.run("final_approve_donation", func() (any, error) {
		actor, err := s.actor(ctx, types.RoleApprover)
		if err != nil {
			return nil, err
		}

		donation, err := s.Donations.DonationWithDonor(ctx, donationID)
		if err != nil {
			return nil, err
		}

		if donation.ApprovalStatus != types.ApprovalPendingFinalApproval {
			return nil, invalidState("Donation is not pending final approval.")
		}

		now := s.now()
		err = s.Donations.TransitionApproval(ctx, donationID, types.ApprovalPendingFinalApproval, &types.DonationUpdate{
			ApprovalStatus: utils.Ptr(types.ApprovalApproved),
			Status:         utils.Ptr(types.DonationStatusApproved),
			ApprovedBy:     utils.Ptr(actor.ID),
			ApprovedAt:     utils.Ptr(now),
		})
		if err != nil {
			return nil, err
		}

		s.notifyApproval(ctx, types.Notice{
			Event:    types.NoticeDonationApproved,
			EntityID: donation.ID,
			Email:    donation.DonorEmail,
			Name:     donation.DonorName,
			Title:    donation.Title,
		})

		donation.ApprovalStatus = types.ApprovalApproved
		donation.Status = types.DonationStatusApproved
		donation.ApprovedBy = utils.Ptr(actor.ID)
		donation.ApprovedAt = utils.Ptr(now)
		return &donation.Donation, nil
	})
}

func (s *Service) FinalRejectDonation(ctx context.Context, donationID, reason string) Result {
	return s.run("final_reject_donation", func() (any, error) {
		actor, err := s.actor(ctx, types.RoleApprover)
		if err != nil {
			return nil, err
		}

		reason, err := requireReason(reason)
		if err != nil {
			return nil, err
		}

		donation, err := s.Donations.DonationWithDonor(ctx, donationID)
		if err != nil {
			return nil, err
		}

		if donation.ApprovalStatus != types.ApprovalPendingFinalApproval {
			return nil, invalidState("Donation is not pending final approval.")
		}

		return s.rejectDonation(ctx, actor, donation, types.ApprovalPendingFinalApproval, reason, true)
	})
}

func (s *Service) rejectDonation(ctx context.Context, actor *types.Profile, donation *types.DonationWithDonor, from types.ApprovalStatus, reason string, final bool) (*types.Donation, error) {
	now := s.now()
	update := &types.DonationUpdate{
		ApprovalStatus:  utils.Ptr(types.ApprovalRejected),
		Status:          utils.Ptr(types.DonationStatusRejected),
		RejectionReason: utils.Ptr(reason),
	}
	if final {
		update.ApprovedBy = utils.Ptr(actor.ID)
		update.ApprovedAt = utils.Ptr(now)
	} else {
		update.ReviewedBy = utils.Ptr(actor.ID)
		update.ReviewedAt = utils.Ptr(now)
	}

	if err := s.Donations.TransitionApproval(ctx, donation.ID, from, update); err != nil {
		return nil, err
	}

	s.notifyRejection(ctx, types.Notice{
		Event:    types.NoticeDonationRejected,
		EntityID: donation.ID,
		Email:    donation.DonorEmail,
		Name:     donation.DonorName,
		Title:    donation.Title,
		Reason:   reason,
	})

	donation.ApprovalStatus = types.ApprovalRejected
	donation.Status = types.DonationStatusRejected
	donation.RejectionReason = utils.Ptr(reason)
	if final {
		donation.ApprovedBy, donation.ApprovedAt = update.ApprovedBy, update.ApprovedAt
	} else {
		donation.ReviewedBy, donation.ReviewedAt = update.ReviewedBy, update.ReviewedAt
	}
	return &donation.Donation, nil
}

// CreateDonation lists a donation for the signed-in donor. Only verified
// donors may list.
func (s *Service) CreateDonation(ctx context.Context, input DonationInput) Result {
	return s.run("create_donation", func() (any, error) {
		actor, err := s.actor(ctx, types.RoleDonor)
		if err != nil {
			return nil, err
		}

		donor, err := s.Donors.Donor(ctx, actor.ID)
		if err != nil {
			return nil, err
		}

		if !donor.CanDonate() {
			return nil, unauthorized("Your donor account has not been verified yet.")
		}

		title := strings.TrimSpace(input.Title)
		if title == "" {
			return nil, validation("A donation title is required.")
		}

		for _, item := range input.Items {
			if strings.TrimSpace(item.Name) == "" || item.Quantity < 1 {
				return nil, validation("Each donated item needs a name and a quantity of at least 1.")
			}
		}

		donation := &types.Donation{
			DonorID:        donor.ID,
			Title:          title,
			Description:    utils.TrimmedPtr(input.Description),
			Items:          input.Items,
			Status:         types.DonationStatusPending,
			ApprovalStatus: types.ApprovalPending,
		}

		if err := s.Donations.CreateDonation(ctx, donation); err != nil {
			return nil, err
		}

		return donation, nil
	})
}

// MarkDonationDelivered closes out an allocated donation.
func (s *Service) MarkDonationDelivered(ctx context.Context, donationID string) Result {
	return s.run("mark_donation_delivered", func() (any, error) {
		if _, err := s.actor(ctx, types.RoleAdmin); err != nil {
			return nil, err
		}

		donation, err := s.Donations.Donation(ctx, donationID)
		if err != nil {
			return nil, err
		}

		if donation.Status != types.DonationStatusAllocated {
			return nil, invalidState("Only allocated donations can be marked delivered.")
		}

		err = s.Donations.TransitionStatus(ctx, donationID, types.DonationStatusAllocated, &types.DonationUpdate{
			Status: utils.Ptr(types.DonationStatusDelivered),
		})
		if err != nil {
			return nil, err
		}

		donation.Status = types.DonationStatusDelivered
		return donation, nil
	})
}

// PendingDonations returns the review queue for a stage. Admins work the
// screening queue and approvers the final one.
func (s *Service) PendingDonations(ctx context.Context, stage ReviewStage) Result {
	return s.run("pending_donations", func() (any, error) {
		var (
			role   types.Role
			status types.ApprovalStatus
		)
		switch stage {
		case StageScreening:
			role, status = types.RoleAdmin, types.ApprovalPending
		case StageFinal:
			role, status = types.RoleApprover, types.ApprovalPendingFinalApproval
		default:
			return nil, validation(fmt.Sprintf("Unknown review stage %q.", stage))
		}

		if _, err := s.actor(ctx, role); err != nil {
			return nil, err
		}

		return s.Donations.DonationsByApprovalStatus(ctx, status)
	})
}

// DonorDonations lists the calling donor's own donations, newest first.
func (s *Service) DonorDonations(ctx context.Context) Result {
	return s.run("donor_donations", func() (any, error) {
		actor, err := s.actor(ctx, types.RoleDonor)
		if err != nil {
			return nil, err
		}

		return s.Donations.DonationsByDonor(ctx, actor.ID)
	})
}

package approval

import (
	"context"
	"math"
	"strings"

	"donorbridge/internal/matching"
	"donorbridge/internal/utils"
	"donorbridge/pkg/types"
)

type MatchInput struct {
	DonationID    string  `json:"donationId" form:"donation_id"`
	ApplicationID string  `json:"applicationId" form:"application_id"`
	Score         float64 `json:"matchScore" form:"match_score"`
	Justification string  `json:"matchJustification" form:"match_justification"`
	PriorityRank  *int    `json:"priorityRank,omitempty" form:"priority_rank"`
}

// ProposeMatch records a candidate pairing of an approved donation with an
// approved application.
func (s *Service) ProposeMatch(ctx context.Context, input MatchInput) Result {
	return s.run("propose_match", func() (any, error) {
		if _, err := s.actor(ctx, types.RoleAdmin); err != nil {
			return nil, err
		}

		justification := strings.TrimSpace(input.Justification)
		switch {
		case math.IsNaN(input.Score) || input.Score < 0 || input.Score > 100:
			return nil, validation("Match score must be between 0 and 100.")
		case justification == "":
			return nil, validation("A match justification is required.")
		case input.PriorityRank != nil && *input.PriorityRank < 1:
			return nil, validation("Priority rank starts at 1.")
		}

		donation, err := s.Donations.Donation(ctx, input.DonationID)
		if err != nil {
			return nil, err
		}
		if donation.Status != types.DonationStatusApproved {
			return nil, invalidState("Only approved, unallocated donations can be matched.")
		}

		application, err := s.Applications.Application(ctx, input.ApplicationID)
		if err != nil {
			return nil, err
		}
		if application.Status != types.ApplicationStatusApproved {
			return nil, invalidState("Only approved applications can be matched.")
		}

		match := &types.Match{
			DonationID:         donation.ID,
			ApplicationID:      application.ID,
			SchoolID:           application.SchoolID,
			MatchScore:         input.Score,
			MatchJustification: justification,
			PriorityRank:       input.PriorityRank,
			Status:             types.MatchStatusPending,
		}

		if err := s.Matches.CreateMatch(ctx, match); err != nil {
			return nil, err
		}

		return match, nil
	})
}

// CandidateMatches returns every match for a donation in precedence order.
func (s *Service) CandidateMatches(ctx context.Context, donationID string) Result {
	return s.run("candidate_matches", func() (any, error) {
		if _, err := s.actor(ctx, types.RoleAdmin, types.RoleApprover); err != nil {
			return nil, err
		}

		if _, err := s.Donations.Donation(ctx, donationID); err != nil {
			return nil, err
		}

		matches, err := s.Matches.MatchesByDonation(ctx, donationID)
		if err != nil {
			return nil, err
		}

		return matching.Rank(matches), nil
	})
}

// AllocateDonation puts the highest-precedence pending match forward for
// approver review. A donation has at most one allocation in flight.
func (s *Service) AllocateDonation(ctx context.Context, donationID, notes string) Result {
	return s.run("allocate_donation", func() (any, error) {
		actor, err := s.actor(ctx, types.RoleAdmin)
		if err != nil {
			return nil, err
		}

		donation, err := s.Donations.Donation(ctx, donationID)
		if err != nil {
			return nil, err
		}
		if donation.Status != types.DonationStatusApproved {
			return nil, invalidState("Donation is %s and cannot be allocated.", donation.Status)
		}

		matches, err := s.Matches.MatchesByDonation(ctx, donationID)
		if err != nil {
			return nil, err
		}

		for _, m := range matches {
			if m.Status == types.MatchStatusPendingApproval || m.Status == types.MatchStatusApproved {
				return nil, invalidState("Donation already has an allocation awaiting review.")
			}
		}

		next := matching.Next(matches, types.MatchStatusPending)
		if next == nil {
			return nil, invalidState("Donation has no pending matches to allocate.")
		}

		now := s.now()
		update := &types.MatchUpdate{
			Status:      utils.Ptr(types.MatchStatusPendingApproval),
			AdminNotes:  utils.TrimmedPtr(notes),
			AllocatedBy: utils.Ptr(actor.ID),
			AllocatedAt: utils.Ptr(now),
		}
		if err := s.Matches.TransitionMatch(ctx, next.ID, types.MatchStatusPending, update); err != nil {
			return nil, err
		}

		next.Status = types.MatchStatusPendingApproval
		next.AdminNotes = update.AdminNotes
		next.AllocatedBy = update.AllocatedBy
		next.AllocatedAt = update.AllocatedAt
		return next, nil
	})
}

// ApproveMatch confirms an allocation. The match and its donation move
// together or not at all.
func (s *Service) ApproveMatch(ctx context.Context, matchID, notes string) Result {
	return s.run("approve_match", func() (any, error) {
		actor, err := s.actor(ctx, types.RoleApprover)
		if err != nil {
			return nil, err
		}

		match, err := s.Matches.Match(ctx, matchID)
		if err != nil {
			return nil, err
		}
		if match.Status != types.MatchStatusPendingApproval {
			return nil, invalidState("Match is %s, only allocated matches can be approved.", match.Status)
		}

		now := s.now()
		update := &types.MatchUpdate{
			Status:        utils.Ptr(types.MatchStatusApproved),
			ReviewedBy:    utils.Ptr(actor.ID),
			ReviewedAt:    utils.Ptr(now),
			ApproverNotes: utils.TrimmedPtr(notes),
		}

		err = s.Tx.InTx(ctx, func(ctx context.Context) error {
			if err := s.Matches.TransitionMatch(ctx, matchID, types.MatchStatusPendingApproval, update); err != nil {
				return err
			}
			return s.Donations.TransitionStatus(ctx, match.DonationID, types.DonationStatusApproved, &types.DonationUpdate{
				Status: utils.Ptr(types.DonationStatusAllocated),
			})
		})
		if err != nil {
			return nil, err
		}

		match.Status = types.MatchStatusApproved
		match.ReviewedBy = update.ReviewedBy
		match.ReviewedAt = update.ReviewedAt
		match.ApproverNotes = update.ApproverNotes

		notice := types.Notice{Event: types.NoticeMatchApproved, EntityID: match.ID}
		if school, err := s.Profiles.Profile(ctx, match.SchoolID); err == nil {
			notice.Email, notice.Name = school.Email, school.FullName
		}
		if donation, err := s.Donations.Donation(ctx, match.DonationID); err == nil {
			notice.Title = donation.Title
		}
		s.notifyApproval(ctx, notice)

		return match, nil
	})
}

// RejectMatch turns down an allocation. The donation stays approved so the
// next candidate can be allocated.
func (s *Service) RejectMatch(ctx context.Context, matchID, reason string) Result {
	return s.run("reject_match", func() (any, error) {
		actor, err := s.actor(ctx, types.RoleApprover)
		if err != nil {
			return nil, err
		}

		reason, err := requireReason(reason)
		if err != nil {
			return nil, err
		}

		match, err := s.Matches.Match(ctx, matchID)
		if err != nil {
			return nil, err
		}
		if match.Status != types.MatchStatusPendingApproval {
			return nil, invalidState("Match is %s, only allocated matches can be rejected.", match.Status)
		}

		now := s.now()
		update := &types.MatchUpdate{
			Status:          utils.Ptr(types.MatchStatusRejected),
			ReviewedBy:      utils.Ptr(actor.ID),
			ReviewedAt:      utils.Ptr(now),
			RejectionReason: utils.Ptr(reason),
		}
		if err := s.Matches.TransitionMatch(ctx, matchID, types.MatchStatusPendingApproval, update); err != nil {
			return nil, err
		}

		match.Status = types.MatchStatusRejected
		match.ReviewedBy = update.ReviewedBy
		match.ReviewedAt = update.ReviewedAt
		match.RejectionReason = update.RejectionReason
		return match, nil
	})
}

package server

import (
	"net/http"

	"donorbridge/internal/approval"
)

type reviewForm struct {
	Reason string `json:"reason" form:"reason"`
	Notes  string `json:"notes" form:"notes"`
}

func (s *Service) decodeReview(w http.ResponseWriter, r *http.Request) (reviewForm, bool) {
	var in reviewForm
	if r.ContentLength == 0 {
		return in, true
	}
	return in, s.decodeOrReject(w, r, &in)
}

func (s *Service) handleGetDonations(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.approval.DonorDonations(r.Context()))
}

func (s *Service) handlePostDonation(w http.ResponseWriter, r *http.Request) {
	var in approval.DonationInput
	if !s.decodeOrReject(w, r, &in) {
		return
	}
	s.writeResult(w, s.approval.CreateDonation(r.Context(), in))
}

func (s *Service) handleGetPendingDonations(w http.ResponseWriter, r *http.Request) {
	stage := approval.ReviewStage(r.URL.Query().Get("stage"))
	if stage == "" {
		stage = approval.StageScreening
	}
	s.writeResult(w, s.approval.PendingDonations(r.Context(), stage))
}

func (s *Service) handlePostApproveDonation(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.approval.ApproveDonation(r.Context(), r.PathValue("id")))
}

func (s *Service) handlePostRejectDonation(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeReview(w, r)
	if !ok {
		return
	}
	s.writeResult(w, s.approval.RejectDonation(r.Context(), r.PathValue("id"), in.Reason))
}

func (s *Service) handlePostFinalApproveDonation(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.approval.FinalApproveDonation(r.Context(), r.PathValue("id")))
}

func (s *Service) handlePostFinalRejectDonation(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeReview(w, r)
	if !ok {
		return
	}
	s.writeResult(w, s.approval.FinalRejectDonation(r.Context(), r.PathValue("id"), in.Reason))
}

func (s *Service) handlePostDeliverDonation(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.approval.MarkDonationDelivered(r.Context(), r.PathValue("id")))
}

func (s *Service) handleGetCandidateMatches(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.approval.CandidateMatches(r.Context(), r.PathValue("id")))
}

func (s *Service) handlePostAllocateDonation(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeReview(w, r)
	if !ok {
		return
	}
	s.writeResult(w, s.approval.AllocateDonation(r.Context(), r.PathValue("id"), in.Notes))
}

func (s *Service) handlePostMatch(w http.ResponseWriter, r *http.Request) {
	var in approval.MatchInput
	if !s.decodeOrReject(w, r, &in) {
		return
	}
	s.writeResult(w, s.approval.ProposeMatch(r.Context(), in))
}

func (s *Service) handlePostApproveMatch(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeReview(w, r)
	if !ok {
		return
	}
	s.writeResult(w, s.approval.ApproveMatch(r.Context(), r.PathValue("id"), in.Notes))
}

func (s *Service) handlePostRejectMatch(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeReview(w, r)
	if !ok {
		return
	}
	s.writeResult(w, s.approval.RejectMatch(r.Context(), r.PathValue("id"), in.Reason))
}

func (s *Service) handleGetPendingVerifications(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.approval.PendingVerifications(r.Context()))
}

func (s *Service) handlePostApproveDonor(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.approval.ApproveDonor(r.Context(), r.PathValue("id")))
}

func (s *Service) handlePostRejectDonor(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeReview(w, r)
	if !ok {
		return
	}
	s.writeResult(w, s.approval.RejectDonor(r.Context(), r.PathValue("id"), in.Reason))
}

func (s *Service) handlePostApproveSchool(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.approval.ApproveSchool(r.Context(), r.PathValue("id")))
}

func (s *Service) handlePostRejectSchool(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeReview(w, r)
	if !ok {
		return
	}
	s.writeResult(w, s.approval.RejectSchool(r.Context(), r.PathValue("id"), in.Reason))
}

func (s *Service) handleGetStaff(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.approval.StaffAccounts(r.Context()))
}

func (s *Service) handlePostStaff(w http.ResponseWriter, r *http.Request) {
	var in approval.StaffInput
	if !s.decodeOrReject(w, r, &in) {
		return
	}
	s.writeResult(w, s.approval.CreateStaffAccount(r.Context(), in))
}

func (s *Service) handleGetApplications(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.approval.SchoolApplications(r.Context()))
}

func (s *Service) handlePostApplication(w http.ResponseWriter, r *http.Request) {
	var in approval.ApplicationInput
	if !s.decodeOrReject(w, r, &in) {
		return
	}
	s.writeResult(w, s.approval.CreateApplication(r.Context(), in))
}

func (s *Service) handlePostUpdateApplication(w http.ResponseWriter, r *http.Request) {
	var in approval.ApplicationInput
	if !s.decodeOrReject(w, r, &in) {
		return
	}
	s.writeResult(w, s.approval.UpdateApplication(r.Context(), r.PathValue("id"), in))
}

func (s *Service) handlePostSubmitApplication(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.approval.SubmitApplication(r.Context(), r.PathValue("id")))
}

func (s *Service) handlePostApproveApplication(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, s.approval.ApproveApplication(r.Context(), r.PathValue("id")))
}

func (s *Service) handlePostRejectApplication(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeReview(w, r)
	if !ok {
		return
	}
	s.writeResult(w, s.approval.RejectApplication(r.Context(), r.PathValue("id"), in.Reason))
}

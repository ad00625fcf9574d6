package types

import "time"

type MatchStatus string

const (
	MatchStatusPending         MatchStatus = "pending"
	MatchStatusPendingApproval MatchStatus = "pending_approval"
	MatchStatusApproved        MatchStatus = "approved"
	MatchStatusRejected        MatchStatus = "rejected"
)

// Match pairs a donation with a resource application. PriorityRank orders
// competing claims on the same donation, lower first.
type Match struct {
	ID                 string      `db:"id" json:"id"`
	DonationID         string      `db:"donation_id" json:"donationId"`
	ApplicationID      string      `db:"application_id" json:"applicationId"`
	SchoolID           string      `db:"school_id" json:"schoolId"`
	MatchScore         float64     `db:"match_score" json:"matchScore"`
	MatchJustification string      `db:"match_justification" json:"matchJustification"`
	PriorityRank       *int        `db:"priority_rank" json:"priorityRank,omitempty"`
	Status             MatchStatus `db:"status" json:"status"`
	AdminNotes         *string     `db:"admin_notes" json:"adminNotes,omitempty"`
	AllocatedBy        *string     `db:"allocated_by" json:"allocatedBy,omitempty"`
	AllocatedAt        *time.Time  `db:"allocated_at" json:"allocatedAt,omitempty"`
	ReviewedBy         *string     `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt         *time.Time  `db:"reviewed_at" json:"reviewedAt,omitempty"`
	ApproverNotes      *string     `db:"approver_notes" json:"approverNotes,omitempty"`
	RejectionReason    *string     `db:"rejection_reason" json:"rejectionReason,omitempty"`
	CreatedAt          time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time   `db:"updated_at" json:"updatedAt"`
}

type MatchUpdate struct {
	Status          *MatchStatus `db:"status"`
	AdminNotes      *string      `db:"admin_notes"`
	AllocatedBy     *string      `db:"allocated_by"`
	AllocatedAt     *time.Time   `db:"allocated_at"`
	ReviewedBy      *string      `db:"reviewed_by"`
	ReviewedAt      *time.Time   `db:"reviewed_at"`
	ApproverNotes   *string      `db:"approver_notes"`
	RejectionReason *string      `db:"rejection_reason"`
}

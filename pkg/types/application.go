package types

import "time"

type ApplicationStatus string

const (
	ApplicationStatusDraft    ApplicationStatus = "draft"
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusApproved ApplicationStatus = "approved"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// Editable reports whether the owning school may still change the application.
func (s ApplicationStatus) Editable() bool {
	return s == ApplicationStatusDraft || s == ApplicationStatusRejected
}

// ResourceApplication is a need posted by a school.
type ResourceApplication struct {
	ID               string            `db:"id" json:"id"`
	SchoolID         string            `db:"school_id" json:"schoolId"`
	ApplicationTitle string            `db:"application_title" json:"applicationTitle"`
	Description      *string           `db:"description" json:"description,omitempty"`
	ItemsNeeded      []string          `db:"items_needed" json:"itemsNeeded"` // jsonb array
	Status           ApplicationStatus `db:"status" json:"status"`
	RejectionReason  *string           `db:"rejection_reason" json:"rejectionReason,omitempty"`
	ReviewedBy       *string           `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt       *time.Time        `db:"reviewed_at" json:"reviewedAt,omitempty"`
	SubmittedAt      *time.Time        `db:"submitted_at" json:"submittedAt,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updatedAt"`
}

type ApplicationUpdate struct {
	ApplicationTitle *string            `db:"application_title"`
	Description      *string            `db:"description"`
	ItemsNeeded      *[]string          `db:"items_needed"`
	Status           *ApplicationStatus `db:"status"`
	RejectionReason  *string            `db:"rejection_reason"`
	ReviewedBy       *string            `db:"reviewed_by"`
	ReviewedAt       *time.Time         `db:"reviewed_at"`
	SubmittedAt      *time.Time         `db:"submitted_at"`
}

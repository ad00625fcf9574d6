package types

import "time"

// DonationStatus tracks the listing through approval and the post-approval
// lifecycle (allocation and delivery).
type DonationStatus string

const (
	DonationStatusPending   DonationStatus = "pending"
	DonationStatusApproved  DonationStatus = "approved"
	DonationStatusRejected  DonationStatus = "rejected"
	DonationStatusAllocated DonationStatus = "allocated"
	DonationStatusDelivered DonationStatus = "delivered"
)

// ApprovalStatus is the content review outcome of a donation.
type ApprovalStatus string

const (
	ApprovalPending              ApprovalStatus = "pending"
	ApprovalPendingFinalApproval ApprovalStatus = "pending_final_approval"
	ApprovalApproved             ApprovalStatus = "approved"
	ApprovalRejected             ApprovalStatus = "rejected"
)

type DonationItem struct {
	Name      string `json:"name" form:"name"`
	Quantity  int    `json:"quantity" form:"quantity"`
	Condition string `json:"condition,omitempty" form:"condition"`
}

type Donation struct {
	ID              string         `db:"id" json:"id"`
	DonorID         string         `db:"donor_id" json:"donorId"`
	Title           string         `db:"title" json:"title"`
	Description     *string        `db:"description" json:"description,omitempty"`
	Items           []DonationItem `db:"items" json:"items"` // jsonb array
	Status          DonationStatus `db:"status" json:"status"`
	ApprovalStatus  ApprovalStatus `db:"approval_status" json:"approvalStatus"`
	RejectionReason *string        `db:"rejection_reason" json:"rejectionReason,omitempty"`
	ReviewedBy      *string        `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time     `db:"reviewed_at" json:"reviewedAt,omitempty"`
	ApprovedBy      *string        `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time     `db:"approved_at" json:"approvedAt,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
}

// Consistent reports whether status agrees with approval_status: a donation
// can only be approved, allocated or delivered after it was fully approved.
func (d *Donation) Consistent() bool {
	switch d.Status {
	case DonationStatusApproved, DonationStatusAllocated, DonationStatusDelivered:
		return d.ApprovalStatus == ApprovalApproved
	case DonationStatusRejected:
		return d.ApprovalStatus == ApprovalRejected
	case DonationStatusPending:
		return d.ApprovalStatus == ApprovalPending || d.ApprovalStatus == ApprovalPendingFinalApproval
	}
	return false
}

type DonationUpdate struct {
	Status          *DonationStatus `db:"status"`
	ApprovalStatus  *ApprovalStatus `db:"approval_status"`
	RejectionReason *string         `db:"rejection_reason"`
	ReviewedBy      *string         `db:"reviewed_by"`
	ReviewedAt      *time.Time      `db:"reviewed_at"`
	ApprovedBy      *string         `db:"approved_by"`
	ApprovedAt      *time.Time      `db:"approved_at"`
}

// DonationWithDonor joins a donation with the contact details used for
// notifications.
type DonationWithDonor struct {
	Donation
	DonorEmail string `db:"donor_email" json:"donorEmail"`
	DonorName  string `db:"donor_name" json:"donorName"`
}

package types

import "time"

type School struct {
	ID                 string             `db:"id" json:"id"`
	SchoolName         string             `db:"school_name" json:"schoolName"`
	RegistrationNumber *string            `db:"registration_number" json:"registrationNumber,omitempty"`
	Address            *string            `db:"address" json:"address,omitempty"`
	ContactPhone       *string            `db:"contact_phone" json:"contactPhone,omitempty"`
	DocumentKey        *string            `db:"document_key" json:"documentKey,omitempty"`
	ApprovalStatus     VerificationStatus `db:"approval_status" json:"approvalStatus"`
	IsVerified         bool               `db:"is_verified" json:"isVerified"`
	VerifiedBy         *string            `db:"verified_by" json:"verifiedBy,omitempty"`
	VerifiedAt         *time.Time         `db:"verified_at" json:"verifiedAt,omitempty"`
	RejectionReason    *string            `db:"rejection_reason" json:"rejectionReason,omitempty"`
	CreatedAt          time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updatedAt"`
}

type SchoolUpdate struct {
	SchoolName         *string             `db:"school_name"`
	RegistrationNumber *string             `db:"registration_number"`
	Address            *string             `db:"address"`
	ContactPhone       *string             `db:"contact_phone"`
	DocumentKey        *string             `db:"document_key"`
	ApprovalStatus     *VerificationStatus `db:"approval_status"`
	IsVerified         *bool               `db:"is_verified"`
	VerifiedBy         *string             `db:"verified_by"`
	VerifiedAt         *time.Time          `db:"verified_at"`
	RejectionReason    *string             `db:"rejection_reason"`
}

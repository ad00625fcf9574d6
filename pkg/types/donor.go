package types

import "time"

// Donor carries the KYC details reviewed before a donor may list donations.
type Donor struct {
	ID                 string             `db:"id" json:"id"`
	FullName           string             `db:"full_name" json:"fullName"`
	Phone              *string            `db:"phone" json:"phone,omitempty"`
	NationalID         *string            `db:"national_id" json:"nationalId,omitempty"`
	Address            *string            `db:"address" json:"address,omitempty"`
	KYCDocumentKey     *string            `db:"kyc_document_key" json:"kycDocumentKey,omitempty"`
	IsVerified         bool               `db:"is_verified" json:"isVerified"`
	VerificationStatus VerificationStatus `db:"verification_status" json:"verificationStatus"`
	VerifiedBy         *string            `db:"verified_by" json:"verifiedBy,omitempty"`
	VerifiedAt         *time.Time         `db:"verified_at" json:"verifiedAt,omitempty"`
	RejectionReason    *string            `db:"rejection_reason" json:"rejectionReason,omitempty"`
	CreatedAt          time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updatedAt"`
}

// CanDonate reports whether the donor passed verification.
func (d *Donor) CanDonate() bool {
	return d.IsVerified && d.VerificationStatus == VerificationApproved
}

type DonorUpdate struct {
	FullName           *string             `db:"full_name"`
	Phone              *string             `db:"phone"`
	NationalID         *string             `db:"national_id"`
	Address            *string             `db:"address"`
	KYCDocumentKey     *string             `db:"kyc_document_key"`
	IsVerified         *bool               `db:"is_verified"`
	VerificationStatus *VerificationStatus `db:"verification_status"`
	VerifiedBy         *string             `db:"verified_by"`
	VerifiedAt         *time.Time          `db:"verified_at"`
	RejectionReason    *string             `db:"rejection_reason"`
}

package types

import "time"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleApprover Role = "approver"
	RoleDonor    Role = "donor"
	RoleSchool   Role = "school"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleApprover, RoleDonor, RoleSchool:
		return true
	}
	return false
}

// IsStaff reports whether the role reviews content rather than submitting it.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleApprover
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// Identity is the authenticated principal as issued by the identity provider.
type Identity struct {
	ID    string
	Email string
}

// Profile is the canonical per-user record. Role is written once at creation
// and has no update path.
type Profile struct {
	ID                 string              `db:"id" json:"id"`
	Email              string              `db:"email" json:"email"`
	Role               Role                `db:"role" json:"role"`
	FullName           string              `db:"full_name" json:"fullName"`
	IsActive           bool                `db:"is_active" json:"isActive"`
	IsVerified         bool                `db:"is_verified" json:"isVerified"`
	VerificationStatus *VerificationStatus `db:"verification_status" json:"verificationStatus,omitempty"`
	VerifiedBy         *string             `db:"verified_by" json:"verifiedBy,omitempty"`
	VerifiedAt         *time.Time          `db:"verified_at" json:"verifiedAt,omitempty"`
	CreatedBy          *string             `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt          time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time           `db:"updated_at" json:"updatedAt"`
}

// ProfileUpdate holds the mutable subset of Profile. Nil fields are left untouched.
type ProfileUpdate struct {
	FullName           *string             `db:"full_name"`
	IsActive           *bool               `db:"is_active"`
	IsVerified         *bool               `db:"is_verified"`
	VerificationStatus *VerificationStatus `db:"verification_status"`
	VerifiedBy         *string             `db:"verified_by"`
	VerifiedAt         *time.Time          `db:"verified_at"`
}

// VerificationDrift describes a profile whose mirrored verification fields
// no longer match its donor or school record.
type VerificationDrift struct {
	ProfileID        string              `db:"profile_id"`
	Role             Role                `db:"role"`
	ProfileStatus    *VerificationStatus `db:"profile_status"`
	ProfileVerified  bool                `db:"profile_verified"`
	RecordStatus     VerificationStatus  `db:"record_status"`
	RecordVerified   bool                `db:"record_verified"`
	RecordVerifiedBy *string             `db:"record_verified_by"`
	RecordVerifiedAt *time.Time          `db:"record_verified_at"`
}

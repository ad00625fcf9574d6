package types

import "errors"

var (
	ErrProfileNotFound     = errors.New("profile not found")
	ErrDonorNotFound       = errors.New("donor not found")
	ErrSchoolNotFound      = errors.New("school not found")
	ErrDonationNotFound    = errors.New("donation not found")
	ErrApplicationNotFound = errors.New("resource application not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrMatchExists         = errors.New("donation is already matched to this application")

	// ErrStaleTransition is returned by conditional updates when the row no
	// longer holds the status the caller read.
	ErrStaleTransition = errors.New("record changed since it was read")
)

var (
	ErrIdentityExists  = errors.New("an account with this email already exists")
	ErrInvalidPassword = errors.New("password does not meet the account policy")
)

var ErrDocumentNotFound = errors.New("no verification document on file")

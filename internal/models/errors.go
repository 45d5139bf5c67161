package models

import "errors"

// Error constants for funnel and OTP operations
var (
	ErrSessionNotFound    = errors.New("funnel session not found")
	ErrInvalidTransition  = errors.New("invalid wizard transition")
	ErrNotInCatalog       = errors.New("selection not present in catalog")
	ErrInvalidYear        = errors.New("year outside the offered range")
	ErrInvalidPhone       = errors.New("phone number must be exactly 10 digits")
	ErrInvalidCode        = errors.New("verification code must be exactly 6 digits")
	ErrCooldownActive     = errors.New("resend cooldown is active")
	ErrSendInFlight       = errors.New("an OTP send is already in flight")
	ErrVerifyInFlight     = errors.New("an OTP verification is already in flight")
	ErrNoOTPSession       = errors.New("no OTP session, request a code first")
	ErrSubmissionNotReady = errors.New("selection incomplete or phone not verified")
	ErrCatalogUnavailable = errors.New("catalog is unavailable")
)

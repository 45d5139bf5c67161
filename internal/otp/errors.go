package otp

import "errors"

// Send-side error categories
var (
	ErrProviderConfig = errors.New("otp provider configuration error")
	ErrQuotaExceeded  = errors.New("otp send quota exceeded")
	ErrInvalidNumber  = errors.New("invalid phone number")
)

// Verify-side error categories
var (
	ErrCodeMismatch   = errors.New("otp code mismatch")
	ErrCodeExpired    = errors.New("otp code expired")
	ErrInvalidSession = errors.New("invalid otp session")
)

// UserMessage converts a categorized provider error into the message shown
// to the user. Unrecognized errors fall through to generic messages.
func UserMessage(err error, verify bool) string {
	switch {
	case errors.Is(err, ErrProviderConfig):
		return "Service configuration error. Please contact support."
	case errors.Is(err, ErrQuotaExceeded):
		return "Service temporarily unavailable. Please try again later."
	case errors.Is(err, ErrInvalidNumber):
		return "Invalid phone number. Please check and try again."
	case errors.Is(err, ErrCodeMismatch):
		return "Invalid OTP. Please try again."
	case errors.Is(err, ErrCodeExpired):
		return "OTP has expired. Please request a new one."
	case errors.Is(err, ErrInvalidSession):
		return "Invalid session. Please request a new OTP."
	case verify:
		return "Failed to verify OTP. Please try again."
	default:
		return "Failed to send OTP. Please try again."
	}
}

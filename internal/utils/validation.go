package utils

import (
	"regexp"
)

var (
	phoneDigitsRegex = regexp.MustCompile(`^[0-9]{10}$`)
	otpCodeRegex     = regexp.MustCompile(`^[0-9]{6}$`)
)

// IsValidPhoneDigits reports whether the input is exactly 10 digits
func IsValidPhoneDigits(phone string) bool {
	return phoneDigitsRegex.MatchString(phone)
}

// IsValidOTPCode reports whether the input is exactly 6 digits
func IsValidOTPCode(code string) bool {
	return otpCodeRegex.MatchString(code)
}

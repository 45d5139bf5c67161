package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var digitsOnlyRegex = regexp.MustCompile(`\D`)

// PhoneComponents represents the parsed components of a phone number
type PhoneComponents struct {
	CountryCode string `json:"country_code"`
	National    string `json:"national"`
	E164        string `json:"e164"`
	// Digits is the E.164 form without the leading plus, the format the
	// SMS OTP provider addresses numbers by
	Digits string `json:"digits"`
}

// CleanPhoneDigits strips every non-digit character from a phone string
func CleanPhoneDigits(phone string) string {
	return digitsOnlyRegex.ReplaceAllString(phone, "")
}

// ParsePhoneNumber parses a 10-digit national number (or an international
// string) and returns its components. Bare 10-digit numbers are treated as
// Indian mobiles.
func ParsePhoneNumber(phoneString, defaultCountryCode string) (*PhoneComponents, error) {
	cleanPhone := strings.TrimSpace(phoneString)

	if !strings.HasPrefix(cleanPhone, "+") {
		digits := CleanPhoneDigits(cleanPhone)
		if strings.HasPrefix(digits, defaultCountryCode) && len(digits) > 10 {
			cleanPhone = "+" + digits
		} else {
			cleanPhone = "+" + defaultCountryCode + digits
		}
	}

	num, err := phonenumbers.Parse(cleanPhone, "")
	if err != nil {
		return nil, fmt.Errorf("failed to parse phone number: %w", err)
	}

	if !phonenumbers.IsValidNumber(num) {
		return nil, fmt.Errorf("invalid phone number: %s", phoneString)
	}

	e164 := phonenumbers.Format(num, phonenumbers.E164)

	return &PhoneComponents{
		CountryCode: fmt.Sprintf("%d", num.GetCountryCode()),
		National:    phonenumbers.GetNationalSignificantNumber(num),
		E164:        e164,
		Digits:      strings.TrimPrefix(e164, "+"),
	}, nil
}

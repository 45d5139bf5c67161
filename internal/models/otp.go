package models

import "time"

// OTPSession represents the phone verification state for a funnel session.
// Exactly one provider session handle exists at a time; a new send always
// replaces the previous one.
type OTPSession struct {
	Phone         string    `json:"phone"`
	Sent          bool      `json:"sent"`
	Verified      bool      `json:"verified"`
	SessionHandle string    `json:"session_handle,omitempty"`
	Attempt       int       `json:"attempt"`
	LastError     string    `json:"last_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Package otp abstracts the external phone-verification providers behind a
// single send/verify contract. Callers never branch on provider identity;
// failures surface as a small fixed set of categorized errors.
package otp

import "context"

// Provider sends a one-time code to a phone number and verifies the code
// the user entered against the provider session it returned.
type Provider interface {
	// Name identifies the integration in logs and metrics
	Name() string
	// Send dispatches a code to an E.164 phone number and returns the
	// opaque provider session handle required to verify it
	Send(ctx context.Context, e164Phone string) (string, error)
	// Verify checks a code against a previously returned session handle
	Verify(ctx context.Context, sessionHandle, code string) error
}

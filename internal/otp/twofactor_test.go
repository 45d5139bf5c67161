package otp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/garagehub/funnel-api/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := logging.InitLogger(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func newTwoFactorServer(t *testing.T, handler http.HandlerFunc) *TwoFactorProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewTwoFactorProvider(server.URL, "test-api-key")
}

func TestTwoFactorSend_Success(t *testing.T) {
	var gotPath string
	provider := newTwoFactorServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"Status":"Success","Details":"abc-session-123"}`)
	})

	handle, err := provider.Send(context.Background(), "+919876543210")
	require.NoError(t, err)
	assert.Equal(t, "abc-session-123", handle)
	// Digits-only addressing, no leading plus
	assert.Equal(t, "/test-api-key/SMS/919876543210/AUTOGEN", gotPath)
}

func TestTwoFactorSend_ErrorCategories(t *testing.T) {
	cases := []struct {
		details string
		want    error
	}{
		{"Invalid API Key", ErrProviderConfig},
		{"Insufficient Credits in your account", ErrQuotaExceeded},
		{"Invalid Number", ErrInvalidNumber},
	}

	for _, tc := range cases {
		t.Run(tc.details, func(t *testing.T) {
			provider := newTwoFactorServer(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `{"Status":"Error","Details":"%s"}`, tc.details)
			})

			_, err := provider.Send(context.Background(), "+919876543210")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestTwoFactorSend_UnrecognizedError(t *testing.T) {
	provider := newTwoFactorServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Status":"Error","Details":"Something odd"}`)
	})

	_, err := provider.Send(context.Background(), "+919876543210")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProviderConfig)
	assert.NotErrorIs(t, err, ErrQuotaExceeded)
	assert.NotErrorIs(t, err, ErrInvalidNumber)
}

func TestTwoFactorVerify_Matched(t *testing.T) {
	var gotPath string
	provider := newTwoFactorServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"Status":"Success","Details":"OTP Matched"}`)
	})

	err := provider.Verify(context.Background(), "abc-session-123", "123456")
	require.NoError(t, err)
	assert.Equal(t, "/test-api-key/SMS/VERIFY/abc-session-123/123456", gotPath)
}

func TestTwoFactorVerify_ErrorCategories(t *testing.T) {
	cases := []struct {
		details string
		want    error
	}{
		{"OTP Mismatch", ErrCodeMismatch},
		{"OTP Expired", ErrCodeExpired},
		{"Invalid Session", ErrInvalidSession},
	}

	for _, tc := range cases {
		t.Run(tc.details, func(t *testing.T) {
			provider := newTwoFactorServer(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `{"Status":"Error","Details":"%s"}`, tc.details)
			})

			err := provider.Verify(context.Background(), "abc", "123456")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestTwoFactorSend_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	provider := NewTwoFactorProvider(server.URL, "test-api-key")
	server.Close()

	_, err := provider.Send(context.Background(), "+919876543210")
	assert.Error(t, err)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Service configuration error. Please contact support.",
		UserMessage(fmt.Errorf("%w: Invalid API Key", ErrProviderConfig), false))
	assert.Equal(t, "Invalid OTP. Please try again.",
		UserMessage(ErrCodeMismatch, true))
	assert.Equal(t, "OTP has expired. Please request a new one.",
		UserMessage(ErrCodeExpired, true))
	assert.Equal(t, "Failed to send OTP. Please try again.",
		UserMessage(fmt.Errorf("boom"), false))
	assert.Equal(t, "Failed to verify OTP. Please try again.",
		UserMessage(fmt.Errorf("boom"), true))
}

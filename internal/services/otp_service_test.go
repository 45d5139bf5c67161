package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/garagehub/funnel-api/internal/config"
	"github.com/garagehub/funnel-api/internal/logging"
	"github.com/garagehub/funnel-api/internal/models"
	"github.com/garagehub/funnel-api/internal/otp"
	"github.com/garagehub/funnel-api/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider scripts provider behavior per test
type fakeProvider struct {
	sendErr     error
	verifyErr   error
	sendCalls   int
	verifyCalls int
	onVerify    func()
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Send(ctx context.Context, phone string) (string, error) {
	f.sendCalls++
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return "handle-1", nil
}

func (f *fakeProvider) Verify(ctx context.Context, handle, code string) error {
	f.verifyCalls++
	if f.onVerify != nil {
		f.onVerify()
	}
	return f.verifyErr
}

func newOTPServiceTest(t *testing.T, provider *fakeProvider) (*OTPService, string) {
	requireRedis(t)
	sid := utils.GenerateUUID()
	cleanupSession(t, sid)
	return NewOTPService(provider, logging.Logger), sid
}

func TestRequestCode_InvalidPhone(t *testing.T) {
	service, sid := newOTPServiceTest(t, &fakeProvider{})
	ctx := context.Background()

	for _, phone := range []string{"", "12345", "abcdefghij", "98765432100"} {
		err := service.RequestCode(ctx, sid, phone)
		assert.ErrorIs(t, err, models.ErrInvalidPhone, "phone %q", phone)
	}
}

func TestRequestCode_SendSuccess(t *testing.T) {
	provider := &fakeProvider{}
	service, sid := newOTPServiceTest(t, provider)
	ctx := context.Background()

	err := service.RequestCode(ctx, sid, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.sendCalls)

	status, err := service.Status(ctx, sid)
	require.NoError(t, err)
	assert.True(t, status.Sent)
	assert.False(t, status.Verified)
	assert.Empty(t, status.LastError)
	assert.Greater(t, status.CooldownSeconds, 0)
	assert.LessOrEqual(t, status.CooldownSeconds, int(config.AppConfig.OTPResendCooldown.Seconds()))
}

func TestRequestCode_CooldownBlocksResend(t *testing.T) {
	provider := &fakeProvider{}
	service, sid := newOTPServiceTest(t, provider)
	ctx := context.Background()

	require.NoError(t, service.RequestCode(ctx, sid, "9876543210"))

	err := service.RequestCode(ctx, sid, "9876543210")
	assert.ErrorIs(t, err, models.ErrCooldownActive)
	assert.Equal(t, 1, provider.sendCalls)
}

func TestRequestCode_ConcurrentSendRejected(t *testing.T) {
	provider := &fakeProvider{}
	service, sid := newOTPServiceTest(t, provider)
	ctx := context.Background()

	// Another send holds the lock, as it would mid provider call
	locked, err := config.Redis.SetNX(ctx, "otp_send_lock:"+sid, "1", time.Minute).Result()
	require.NoError(t, err)
	require.True(t, locked)

	err = service.RequestCode(ctx, sid, "9876543210")
	assert.ErrorIs(t, err, models.ErrSendInFlight)
	assert.Zero(t, provider.sendCalls, "a rejected send must not reach the provider")

	// Releasing the lock lets the send through
	require.NoError(t, config.Redis.Del(ctx, "otp_send_lock:"+sid).Err())
	require.NoError(t, service.RequestCode(ctx, sid, "9876543210"))
	assert.Equal(t, 1, provider.sendCalls)
}

func TestRequestCode_SendFailureRecorded(t *testing.T) {
	provider := &fakeProvider{sendErr: otp.ErrInvalidNumber}
	service, sid := newOTPServiceTest(t, provider)
	ctx := context.Background()

	err := service.RequestCode(ctx, sid, "9876543210")
	assert.ErrorIs(t, err, otp.ErrInvalidNumber)

	status, err := service.Status(ctx, sid)
	require.NoError(t, err)
	assert.False(t, status.Sent)
	assert.Equal(t, otp.UserMessage(otp.ErrInvalidNumber, false), status.LastError)
	// A failed send must not start the cooldown; the user can retry at once
	assert.Zero(t, status.CooldownSeconds)
}

func TestRequestCode_PhoneChangeResetsSession(t *testing.T) {
	provider := &fakeProvider{}
	service, sid := newOTPServiceTest(t, provider)
	ctx := context.Background()

	require.NoError(t, service.RequestCode(ctx, sid, "9876543210"))
	require.NoError(t, service.SubmitCode(ctx, sid, "123456"))

	// Let the cooldown go; tests use the real key, so drop it directly
	require.NoError(t, config.Redis.Del(ctx, "otp_cooldown:"+sid).Err())

	require.NoError(t, service.RequestCode(ctx, sid, "9123456780"))

	status, err := service.Status(ctx, sid)
	require.NoError(t, err)
	assert.True(t, status.Sent)
	assert.False(t, status.Verified, "verification must not survive a phone change")
}

func TestSubmitCode_InvalidFormat(t *testing.T) {
	service, sid := newOTPServiceTest(t, &fakeProvider{})
	ctx := context.Background()

	for _, code := range []string{"", "12345", "1234567", "12345a"} {
		err := service.SubmitCode(ctx, sid, code)
		assert.ErrorIs(t, err, models.ErrInvalidCode, "code %q", code)
	}
}

func TestSubmitCode_WithoutSend(t *testing.T) {
	service, sid := newOTPServiceTest(t, &fakeProvider{})
	ctx := context.Background()

	err := service.SubmitCode(ctx, sid, "123456")
	assert.ErrorIs(t, err, models.ErrNoOTPSession)
}

func TestSubmitCode_SuccessIsIdempotent(t *testing.T) {
	provider := &fakeProvider{}
	service, sid := newOTPServiceTest(t, provider)
	ctx := context.Background()

	require.NoError(t, service.RequestCode(ctx, sid, "9876543210"))
	require.NoError(t, service.SubmitCode(ctx, sid, "123456"))
	assert.Equal(t, 1, provider.verifyCalls)

	// Replaying the code after success must not hit the provider again
	require.NoError(t, service.SubmitCode(ctx, sid, "123456"))
	assert.Equal(t, 1, provider.verifyCalls)

	status, err := service.Status(ctx, sid)
	require.NoError(t, err)
	assert.True(t, status.Verified)

	phone, err := service.Phone(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "9876543210", phone)
}

func TestSubmitCode_ConcurrentVerifyRejected(t *testing.T) {
	provider := &fakeProvider{}
	service, sid := newOTPServiceTest(t, provider)
	ctx := context.Background()

	require.NoError(t, service.RequestCode(ctx, sid, "9876543210"))

	// Another verify holds the lock, as it would mid provider call
	locked, err := config.Redis.SetNX(ctx, "otp_verify_lock:"+sid, "1", time.Minute).Result()
	require.NoError(t, err)
	require.True(t, locked)

	err = service.SubmitCode(ctx, sid, "123456")
	assert.ErrorIs(t, err, models.ErrVerifyInFlight)
	assert.Zero(t, provider.verifyCalls, "a rejected verify must not reach the provider")

	// Releasing the lock lets the verify through
	require.NoError(t, config.Redis.Del(ctx, "otp_verify_lock:"+sid).Err())
	require.NoError(t, service.SubmitCode(ctx, sid, "123456"))
	assert.Equal(t, 1, provider.verifyCalls)
}

func TestSubmitCode_MismatchKeepsSession(t *testing.T) {
	provider := &fakeProvider{verifyErr: otp.ErrCodeMismatch}
	service, sid := newOTPServiceTest(t, provider)
	ctx := context.Background()

	require.NoError(t, service.RequestCode(ctx, sid, "9876543210"))

	err := service.SubmitCode(ctx, sid, "000000")
	assert.ErrorIs(t, err, otp.ErrCodeMismatch)

	status, err := service.Status(ctx, sid)
	require.NoError(t, err)
	assert.True(t, status.Sent, "a mismatch leaves the provider session usable")
	assert.False(t, status.Verified)
	assert.Equal(t, otp.UserMessage(otp.ErrCodeMismatch, true), status.LastError)

	// The same session can still verify
	provider.verifyErr = nil
	require.NoError(t, service.SubmitCode(ctx, sid, "123456"))
}

func TestSubmitCode_ExpiredTearsDownSession(t *testing.T) {
	provider := &fakeProvider{verifyErr: otp.ErrCodeExpired}
	service, sid := newOTPServiceTest(t, provider)
	ctx := context.Background()

	require.NoError(t, service.RequestCode(ctx, sid, "9876543210"))

	err := service.SubmitCode(ctx, sid, "123456")
	assert.ErrorIs(t, err, otp.ErrCodeExpired)

	status, err := service.Status(ctx, sid)
	require.NoError(t, err)
	assert.False(t, status.Sent, "an expired code invalidates the provider session")
	assert.Equal(t, otp.UserMessage(otp.ErrCodeExpired, true), status.LastError)

	// Another verify now needs a fresh send first
	err = service.SubmitCode(ctx, sid, "123456")
	assert.ErrorIs(t, err, models.ErrNoOTPSession)
}

func TestSubmitCode_StaleResultDiscarded(t *testing.T) {
	provider := &fakeProvider{}
	service, sid := newOTPServiceTest(t, provider)
	ctx := context.Background()

	require.NoError(t, service.RequestCode(ctx, sid, "9876543210"))

	// While the provider call is outstanding a fresh send replaces the
	// session; the in-flight result must not be applied to it
	provider.onVerify = func() {
		replacement := models.OTPSession{
			Phone:         "9876543210",
			Sent:          true,
			SessionHandle: "handle-2",
			Attempt:       2,
			CreatedAt:     time.Now(),
			UpdatedAt:     time.Now(),
		}
		data, err := json.Marshal(replacement)
		require.NoError(t, err)
		require.NoError(t, config.Redis.Set(ctx, "otp_session:"+sid, data, time.Minute).Err())
	}

	err := service.SubmitCode(ctx, sid, "123456")
	assert.ErrorIs(t, err, models.ErrNoOTPSession)

	status, err := service.Status(ctx, sid)
	require.NoError(t, err)
	assert.False(t, status.Verified, "stale result must not verify the replacement session")
	assert.True(t, status.Sent)
}

func TestStatus_EmptySession(t *testing.T) {
	service, sid := newOTPServiceTest(t, &fakeProvider{})
	ctx := context.Background()

	status, err := service.Status(ctx, sid)
	require.NoError(t, err)
	assert.False(t, status.Sent)
	assert.False(t, status.Verified)
	assert.Zero(t, status.CooldownSeconds)
	assert.Empty(t, status.LastError)
}

func TestPhone_UnverifiedIsEmpty(t *testing.T) {
	service, sid := newOTPServiceTest(t, &fakeProvider{})
	ctx := context.Background()

	require.NoError(t, service.RequestCode(ctx, sid, "9876543210"))

	phone, err := service.Phone(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, phone)
}

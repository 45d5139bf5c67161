package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/garagehub/funnel-api/internal/config"
	"github.com/garagehub/funnel-api/internal/models"
	"github.com/garagehub/funnel-api/internal/observability"
	"github.com/garagehub/funnel-api/internal/otp"
	"github.com/garagehub/funnel-api/internal/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// lockTTL bounds how long a crashed call can keep its single-flight lock
const lockTTL = 30 * time.Second

// OTPService owns the phone-verification session lifecycle for every funnel
// session. All state lives in Redis; the cooldown is a key whose TTL is the
// remaining seconds, so it can only count down.
type OTPService struct {
	provider otp.Provider
	logger   *zap.Logger
}

// NewOTPService creates an OTP service on top of a provider
func NewOTPService(provider otp.Provider, logger *zap.Logger) *OTPService {
	return &OTPService{
		provider: provider,
		logger:   logger,
	}
}

func otpSessionKey(sid string) string  { return "otp_session:" + sid }
func otpCooldownKey(sid string) string { return "otp_cooldown:" + sid }
func otpSendLockKey(sid string) string { return "otp_send_lock:" + sid }
func otpVerifyLockKey(sid string) string {
	return "otp_verify_lock:" + sid
}

// RequestCode validates the phone number and asks the provider to send a
// code. A successful send replaces any previous provider session and starts
// the resend cooldown.
func (s *OTPService) RequestCode(ctx context.Context, sid, phone string) error {
	digits := utils.CleanPhoneDigits(phone)
	if !utils.IsValidPhoneDigits(digits) {
		return models.ErrInvalidPhone
	}

	logger := s.logger.With(
		zap.String("session_id", sid),
		zap.String("phone", observability.MaskPhone(digits)),
		zap.String("provider", s.provider.Name()),
	)

	// Resend gating: the cooldown key's TTL is the remaining wait
	if ttl, err := config.Redis.TTL(ctx, otpCooldownKey(sid)).Result(); err == nil && ttl > 0 {
		return models.ErrCooldownActive
	}

	// Single outstanding send per session
	locked, err := config.Redis.SetNX(ctx, otpSendLockKey(sid), "1", lockTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire send lock: %w", err)
	}
	if !locked {
		return models.ErrSendInFlight
	}
	defer config.Redis.Del(ctx, otpSendLockKey(sid))

	session, err := s.loadSession(ctx, sid)
	if err != nil {
		return err
	}
	attempt := 0
	if session != nil {
		attempt = session.Attempt
		if session.Phone != digits {
			// Editing the phone after a send discards the old session
			logger.Info("phone changed, resetting otp session")
			session = nil
		}
	}

	components, err := utils.ParsePhoneNumber(digits, config.AppConfig.DefaultCountryCode)
	if err != nil {
		return models.ErrInvalidPhone
	}

	now := time.Now()
	next := models.OTPSession{
		Phone:     digits,
		Attempt:   attempt + 1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if session != nil {
		next.CreatedAt = session.CreatedAt
	}

	handle, sendErr := s.provider.Send(ctx, components.E164)
	if sendErr != nil {
		next.LastError = otp.UserMessage(sendErr, false)
		if err := s.saveSession(ctx, sid, next); err != nil {
			logger.Error("failed to persist otp session after send failure", zap.Error(err))
		}
		observability.OTPSends.WithLabelValues(s.provider.Name(), "failure").Inc()
		logger.Warn("otp send failed", zap.Error(sendErr))
		return sendErr
	}

	next.Sent = true
	next.SessionHandle = handle
	if err := s.saveSession(ctx, sid, next); err != nil {
		return err
	}
	if err := config.Redis.Set(ctx, otpCooldownKey(sid), "1", config.AppConfig.OTPResendCooldown).Err(); err != nil {
		logger.Warn("failed to start resend cooldown", zap.Error(err))
	}
	observability.OTPSends.WithLabelValues(s.provider.Name(), "success").Inc()
	return nil
}

// SubmitCode verifies a 6-digit code against the current provider session.
// It is idempotent after success and single-flight while a verification is
// outstanding, so an auto-submitting client can never double-verify.
func (s *OTPService) SubmitCode(ctx context.Context, sid, code string) error {
	if !utils.IsValidOTPCode(code) {
		return models.ErrInvalidCode
	}

	logger := s.logger.With(
		zap.String("session_id", sid),
		zap.String("provider", s.provider.Name()),
	)

	session, err := s.loadSession(ctx, sid)
	if err != nil {
		return err
	}
	if session == nil || !session.Sent || session.SessionHandle == "" {
		return models.ErrNoOTPSession
	}
	if session.Verified {
		return nil
	}

	locked, err := config.Redis.SetNX(ctx, otpVerifyLockKey(sid), "1", lockTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire verify lock: %w", err)
	}
	if !locked {
		return models.ErrVerifyInFlight
	}
	defer config.Redis.Del(ctx, otpVerifyLockKey(sid))

	attempt := session.Attempt
	verifyErr := s.provider.Verify(ctx, session.SessionHandle, code)

	// Re-read before applying: a fresh send may have replaced the session
	// while the provider call was outstanding
	current, err := s.loadSession(ctx, sid)
	if err != nil {
		return err
	}
	if current == nil || current.Attempt != attempt {
		logger.Info("discarding stale otp verification result",
			zap.Int("attempt", attempt))
		return models.ErrNoOTPSession
	}

	current.UpdatedAt = time.Now()

	switch {
	case verifyErr == nil:
		current.Verified = true
		current.LastError = ""
		observability.OTPVerifications.WithLabelValues(s.provider.Name(), "success").Inc()
	case errors.Is(verifyErr, otp.ErrCodeExpired), errors.Is(verifyErr, otp.ErrInvalidSession):
		// The provider session is gone; a fresh code must be requested
		current.Sent = false
		current.SessionHandle = ""
		current.LastError = otp.UserMessage(verifyErr, true)
		observability.OTPVerifications.WithLabelValues(s.provider.Name(), "expired").Inc()
	default:
		current.LastError = otp.UserMessage(verifyErr, true)
		observability.OTPVerifications.WithLabelValues(s.provider.Name(), "failure").Inc()
	}

	if err := s.saveSession(ctx, sid, *current); err != nil {
		return err
	}
	return verifyErr
}

// Status returns the client-visible verification state and the remaining
// cooldown in whole seconds
func (s *OTPService) Status(ctx context.Context, sid string) (models.OTPStatus, error) {
	status := models.OTPStatus{}

	session, err := s.loadSession(ctx, sid)
	if err != nil {
		return status, err
	}
	if session != nil {
		status.Sent = session.Sent
		status.Verified = session.Verified
		status.LastError = session.LastError
	}

	if ttl, err := config.Redis.TTL(ctx, otpCooldownKey(sid)).Result(); err == nil && ttl > 0 {
		status.CooldownSeconds = int(math.Ceil(ttl.Seconds()))
	}

	return status, nil
}

// Phone returns the verified phone digits for the session, empty when the
// session is absent or unverified
func (s *OTPService) Phone(ctx context.Context, sid string) (string, error) {
	session, err := s.loadSession(ctx, sid)
	if err != nil {
		return "", err
	}
	if session == nil || !session.Verified {
		return "", nil
	}
	return session.Phone, nil
}

func (s *OTPService) loadSession(ctx context.Context, sid string) (*models.OTPSession, error) {
	data, err := config.Redis.Get(ctx, otpSessionKey(sid)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load otp session: %w", err)
	}
	var session models.OTPSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal otp session: %w", err)
	}
	return &session, nil
}

func (s *OTPService) saveSession(ctx context.Context, sid string, session models.OTPSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal otp session: %w", err)
	}
	if err := config.Redis.Set(ctx, otpSessionKey(sid), data, config.AppConfig.OTPSessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to save otp session: %w", err)
	}
	return nil
}

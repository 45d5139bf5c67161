package otp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/garagehub/funnel-api/internal/logging"
	"github.com/garagehub/funnel-api/internal/observability"
	"github.com/garagehub/funnel-api/internal/utils/httpclient"
	"go.uber.org/zap"
)

// RecaptchaTokenSource supplies one bot-check token per send attempt. It is
// an owned, injected dependency: exactly one active verifier token exists
// per verification attempt and nothing here touches process-wide state.
type RecaptchaTokenSource interface {
	Token(ctx context.Context) (string, error)
}

// FirebaseProvider implements Provider against the identity-toolkit phone
// auth REST endpoints, the federated SDK variant of the flow
type FirebaseProvider struct {
	baseURL string
	apiKey  string
	tokens  RecaptchaTokenSource
}

// NewFirebaseProvider creates a firebase-backed OTP provider
func NewFirebaseProvider(baseURL, apiKey string, tokens RecaptchaTokenSource) *FirebaseProvider {
	return &FirebaseProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		tokens:  tokens,
	}
}

// Name identifies the integration
func (p *FirebaseProvider) Name() string {
	return "firebase"
}

type firebaseSendRequest struct {
	PhoneNumber    string `json:"phoneNumber"`
	RecaptchaToken string `json:"recaptchaToken"`
}

type firebaseSendResponse struct {
	SessionInfo string `json:"sessionInfo"`
}

type firebaseVerifyRequest struct {
	SessionInfo string `json:"sessionInfo"`
	Code        string `json:"code"`
}

type firebaseErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Send mounts a fresh bot-check token and requests a verification code. The
// returned sessionInfo is the provider session handle.
func (p *FirebaseProvider) Send(ctx context.Context, e164Phone string) (string, error) {
	token, err := p.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: recaptcha token: %v", ErrProviderConfig, err)
	}

	url := fmt.Sprintf("%s/v1/accounts:sendVerificationCode?key=%s", p.baseURL, p.apiKey)
	var resp firebaseSendResponse
	if err := p.post(ctx, url, firebaseSendRequest{
		PhoneNumber:    e164Phone,
		RecaptchaToken: token,
	}, &resp); err != nil {
		return "", err
	}

	logging.Logger.Info("otp sent",
		zap.String("provider", p.Name()),
		zap.String("phone", observability.MaskPhone(e164Phone)),
	)
	return resp.SessionInfo, nil
}

// Verify confirms the code against the sessionInfo handle from Send
func (p *FirebaseProvider) Verify(ctx context.Context, sessionHandle, code string) error {
	url := fmt.Sprintf("%s/v1/accounts:signInWithPhoneNumber?key=%s", p.baseURL, p.apiKey)
	var resp struct {
		IDToken string `json:"idToken"`
	}
	return p.post(ctx, url, firebaseVerifyRequest{
		SessionInfo: sessionHandle,
		Code:        code,
	}, &resp)
}

func (p *FirebaseProvider) post(ctx context.Context, url string, payload, out interface{}) error {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := httpclient.GetGlobalPool().Get()
	defer httpclient.GetGlobalPool().Put(client)

	httpResp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach otp provider: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read otp provider response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var errResp firebaseErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return classifyFirebaseError(errResp.Error.Message)
		}
		return fmt.Errorf("otp provider returned status %d", httpResp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode otp provider response: %w", err)
	}

	return nil
}

// classifyFirebaseError maps identity-toolkit error codes into the fixed
// error categories
func classifyFirebaseError(message string) error {
	switch {
	case strings.Contains(message, "INVALID_PHONE_NUMBER"):
		return fmt.Errorf("%w: %s", ErrInvalidNumber, message)
	case strings.Contains(message, "QUOTA_EXCEEDED"),
		strings.Contains(message, "TOO_MANY_ATTEMPTS_TRY_LATER"):
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, message)
	case strings.Contains(message, "API_KEY"),
		strings.Contains(message, "CAPTCHA_CHECK_FAILED"),
		strings.Contains(message, "MISSING_RECAPTCHA_TOKEN"):
		return fmt.Errorf("%w: %s", ErrProviderConfig, message)
	case strings.Contains(message, "INVALID_CODE"),
		strings.Contains(message, "MISSING_CODE"):
		return fmt.Errorf("%w: %s", ErrCodeMismatch, message)
	case strings.Contains(message, "SESSION_EXPIRED"),
		strings.Contains(message, "CODE_EXPIRED"):
		return fmt.Errorf("%w: %s", ErrCodeExpired, message)
	case strings.Contains(message, "INVALID_SESSION_INFO"),
		strings.Contains(message, "MISSING_SESSION_INFO"):
		return fmt.Errorf("%w: %s", ErrInvalidSession, message)
	default:
		return fmt.Errorf("otp provider error: %s", message)
	}
}

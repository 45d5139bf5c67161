package otp

import (
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

// twoFactorResponse is the envelope returned by every 2Factor endpoint. On
// success Details carries the session handle (send) or the verdict string
// (verify); on failure it carries the error text.
type twoFactorResponse struct {
	Status  string `json:"Status"`
	Details string `json:"Details"`
}

// TwoFactorProvider implements Provider against the 2Factor SMS REST API
type TwoFactorProvider struct {
	baseURL string
	apiKey  string
}

// NewTwoFactorProvider creates a 2Factor-backed OTP provider
func NewTwoFactorProvider(baseURL, apiKey string) *TwoFactorProvider {
	return &TwoFactorProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Name identifies the integration
func (p *TwoFactorProvider) Name() string {
	return "twofactor"
}

// Send requests an auto-generated code for the phone number. The provider
// addresses numbers by digits-only E.164.
func (p *TwoFactorProvider) Send(ctx context.Context, e164Phone string) (string, error) {
	phone := strings.TrimPrefix(e164Phone, "+")
	url := fmt.Sprintf("%s/%s/SMS/%s/AUTOGEN", p.baseURL, p.apiKey, phone)

	resp, err := p.call(ctx, url)
	if err != nil {
		return "", err
	}

	if resp.Status != "Success" {
		return "", classifySendError(resp.Details)
	}

	logging.Logger.Info("otp sent",
		zap.String("provider", p.Name()),
		zap.String("phone", observability.MaskPhone(phone)),
	)
	return resp.Details, nil
}

// Verify checks the code against the session handle from Send
func (p *TwoFactorProvider) Verify(ctx context.Context, sessionHandle, code string) error {
	url := fmt.Sprintf("%s/%s/SMS/VERIFY/%s/%s", p.baseURL, p.apiKey, sessionHandle, code)

	resp, err := p.call(ctx, url)
	if err != nil {
		return err
	}

	if resp.Status == "Success" && resp.Details == "OTP Matched" {
		return nil
	}

	switch resp.Details {
	case "OTP Mismatch":
		return ErrCodeMismatch
	case "OTP Expired":
		return ErrCodeExpired
	case "Invalid Session":
		return ErrInvalidSession
	default:
		return fmt.Errorf("verification failed: %s", resp.Details)
	}
}

func (p *TwoFactorProvider) call(ctx context.Context, url string) (*twoFactorResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	client := httpclient.GetGlobalPool().Get()
	defer httpclient.GetGlobalPool().Put(client)

	httpResp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach otp provider: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read otp provider response: %w", err)
	}

	var resp twoFactorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode otp provider response: %w", err)
	}

	return &resp, nil
}

// classifySendError maps the provider's error text into the fixed send
// failure categories
func classifySendError(details string) error {
	switch {
	case strings.Contains(details, "Invalid API Key"):
		return fmt.Errorf("%w: %s", ErrProviderConfig, details)
	case strings.Contains(details, "Insufficient Credits"):
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, details)
	case strings.Contains(details, "Invalid Number"):
		return fmt.Errorf("%w: %s", ErrInvalidNumber, details)
	default:
		return fmt.Errorf("otp send failed: %s", details)
	}
}

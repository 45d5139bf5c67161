package otp

import "context"

type recaptchaTokenKey struct{}

// WithRecaptchaToken attaches the client's bot-check token for a single
// send attempt to the context
func WithRecaptchaToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, recaptchaTokenKey{}, token)
}

// ContextTokenSource yields the per-attempt bot-check token the client
// supplied with its send request. Each attempt carries its own token; there
// is no shared verifier instance to manage.
type ContextTokenSource struct{}

// Token returns the token attached to the context
func (ContextTokenSource) Token(ctx context.Context) (string, error) {
	token, ok := ctx.Value(recaptchaTokenKey{}).(string)
	if !ok || token == "" {
		return "", ErrProviderConfig
	}
	return token, nil
}

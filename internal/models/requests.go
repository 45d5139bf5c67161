package models

// SelectBrandRequest is the body for a brand selection
type SelectBrandRequest struct {
	Brand string `json:"brand" binding:"required"`
}

// SelectModelRequest is the body for a model selection
type SelectModelRequest struct {
	Model string `json:"model" binding:"required"`
}

// SelectFuelRequest is the body for a fuel-type selection
type SelectFuelRequest struct {
	Fuel string `json:"fuel" binding:"required"`
}

// SelectYearRequest is the body for a year selection
type SelectYearRequest struct {
	Year string `json:"year" binding:"required"`
}

// SearchRequest updates the free-text filter for the brands or models view
type SearchRequest struct {
	View  View   `json:"view" binding:"required"`
	Query string `json:"query"`
}

// OTPSendRequest is the body for requesting a verification code. The
// recaptcha token is required by the federated provider only; one token per
// send attempt.
type OTPSendRequest struct {
	Phone          string `json:"phone" binding:"required"`
	RecaptchaToken string `json:"recaptcha_token,omitempty"`
}

// OTPVerifyRequest is the body for submitting a verification code
type OTPVerifyRequest struct {
	Code string `json:"code" binding:"required"`
}

// OTPStatus is the client-visible verification state, including the
// remaining resend cooldown in whole seconds
type OTPStatus struct {
	Sent            bool   `json:"sent"`
	Verified        bool   `json:"verified"`
	CooldownSeconds int    `json:"cooldown_seconds"`
	LastError       string `json:"last_error,omitempty"`
}

// FunnelStateResponse is the full funnel snapshot rendered by the client
type FunnelStateResponse struct {
	SessionID string       `json:"session_id"`
	View      View         `json:"view"`
	Direction Direction    `json:"direction"`
	Selection Selection    `json:"selection"`
	Brands    []CarBrand   `json:"brands,omitempty"`
	Models    []CarModel   `json:"models,omitempty"`
	Fuels     []FuelOption `json:"fuels,omitempty"`
	Years     []string     `json:"years,omitempty"`
	// EmptyState is set when the current view has nothing to offer, e.g. a
	// brand with zero models
	EmptyState string    `json:"empty_state,omitempty"`
	OTP        OTPStatus `json:"otp"`
	Complete   bool      `json:"complete"`
}

// CarSelectionRecord is the fixed-schema hand-off record written for
// downstream funnel pages. Field names are part of the contract; downstream
// readers assume exactly this set.
type CarSelectionRecord struct {
	Brand    string `json:"brand"`
	Model    string `json:"model"`
	FuelType string `json:"fuelType"`
	Year     string `json:"year"`
	Phone    string `json:"phone"`
	Image    string `json:"image,omitempty"`
}

// CartItem is a single service in the cart record
type CartItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// CartRecord is the fixed-schema cart written by the checkout pages
type CartRecord struct {
	Items []CartItem `json:"items"`
	Total float64    `json:"total"`
}

// SubmitRequest is the flat record posted to the downstream backend
type SubmitRequest struct {
	Brand    string `json:"brand"`
	Model    string `json:"model"`
	FuelType string `json:"fuelType"`
	Year     string `json:"year"`
	Phone    string `json:"phone"`
}

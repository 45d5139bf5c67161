package models

import "time"

// View identifies which wizard view is active
type View string

// Wizard views. Form is the initial and terminal view.
const (
	ViewForm   View = "form"
	ViewBrands View = "brands"
	ViewModels View = "models"
	ViewFuels  View = "fuels"
	ViewYears  View = "years"
)

// Direction tags a transition for the rendering layer only; it never
// affects data
type Direction string

const (
	DirectionForward  Direction = "forward"
	DirectionBackward Direction = "backward"
)

// Selection holds the vehicle choices made so far. Fields are weak
// references into the fetched catalog, by name; empty means not chosen.
type Selection struct {
	Brand      string `json:"brand,omitempty"`
	Model      string `json:"model,omitempty"`
	ModelImage string `json:"model_image,omitempty"`
	Fuel       string `json:"fuel,omitempty"`
	Year       string `json:"year,omitempty"`
}

// Complete reports whether all four choices have been made
func (s Selection) Complete() bool {
	return s.Brand != "" && s.Model != "" && s.Fuel != "" && s.Year != ""
}

// FunnelState is the wizard view-state machine state
type FunnelState struct {
	View        View      `json:"view"`
	Direction   Direction `json:"direction"`
	Selection   Selection `json:"selection"`
	BrandSearch string    `json:"brand_search,omitempty"`
	ModelSearch string    `json:"model_search,omitempty"`
}

// FunnelSession is the per-tab session record persisted in Redis
type FunnelSession struct {
	ID        string      `json:"id"`
	State     FunnelState `json:"state"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewFunnelState returns the initial wizard state
func NewFunnelState() FunnelState {
	return FunnelState{
		View:      ViewForm,
		Direction: DirectionForward,
	}
}

// Package wizard implements the vehicle-selection view-state machine: a
// user walks brand -> model -> fuel -> year through five mutually exclusive
// views with forward/backward navigation. All transitions are user-triggered
// and the direction tag exists for the rendering layer only.
package wizard

import (
	"strconv"
	"strings"
	"time"

	"github.com/garagehub/funnel-api/internal/models"
)

// YearCount is how many calendar years the years view offers, ending at the
// current year
const YearCount = 30

// Machine applies wizard transitions to a funnel state. It performs no I/O;
// catalog validation happens in the service layer before selections reach it.
type Machine struct {
	state *models.FunnelState
}

// New wraps an existing funnel state
func New(state *models.FunnelState) Machine {
	return Machine{state: state}
}

// OpenPicker moves Form -> Brands
func (m Machine) OpenPicker() error {
	if m.state.View != models.ViewForm {
		return models.ErrInvalidTransition
	}
	m.transition(models.ViewBrands, models.DirectionForward)
	return nil
}

// SelectBrand moves Brands -> Models. Choosing a brand clears the model,
// fuel and year selections and resets the model search filter.
func (m Machine) SelectBrand(brand string) error {
	if m.state.View != models.ViewBrands {
		return models.ErrInvalidTransition
	}
	m.state.Selection = models.Selection{Brand: brand}
	m.state.ModelSearch = ""
	m.transition(models.ViewModels, models.DirectionForward)
	return nil
}

// SelectModel moves Models -> Fuels. Choosing a model clears the fuel and
// year selections.
func (m Machine) SelectModel(model, image string) error {
	if m.state.View != models.ViewModels {
		return models.ErrInvalidTransition
	}
	m.state.Selection.Model = model
	m.state.Selection.ModelImage = image
	m.state.Selection.Fuel = ""
	m.state.Selection.Year = ""
	m.transition(models.ViewFuels, models.DirectionForward)
	return nil
}

// SelectFuel moves Fuels -> Years. Choosing a fuel clears the year.
func (m Machine) SelectFuel(fuel string) error {
	if m.state.View != models.ViewFuels {
		return models.ErrInvalidTransition
	}
	m.state.Selection.Fuel = fuel
	m.state.Selection.Year = ""
	m.transition(models.ViewYears, models.DirectionForward)
	return nil
}

// SelectYear moves Years -> Form. This is the only transition that returns
// directly to the form rather than going back one view.
func (m Machine) SelectYear(year string) error {
	if m.state.View != models.ViewYears {
		return models.ErrInvalidTransition
	}
	m.state.Selection.Year = year
	m.transition(models.ViewForm, models.DirectionForward)
	return nil
}

// Back moves one view towards the form: Models -> Brands, Fuels -> Models,
// Years -> Fuels, Brands -> Form. Selections survive back navigation.
func (m Machine) Back() error {
	switch m.state.View {
	case models.ViewBrands:
		m.transition(models.ViewForm, models.DirectionBackward)
	case models.ViewModels:
		m.transition(models.ViewBrands, models.DirectionBackward)
	case models.ViewFuels:
		m.transition(models.ViewModels, models.DirectionBackward)
	case models.ViewYears:
		m.transition(models.ViewFuels, models.DirectionBackward)
	default:
		return models.ErrInvalidTransition
	}
	return nil
}

// SetSearch updates the free-text filter for the brands or models view.
// Filters are view-scoped: the brand and model boxes are independent.
func (m Machine) SetSearch(view models.View, query string) error {
	switch view {
	case models.ViewBrands:
		m.state.BrandSearch = query
	case models.ViewModels:
		m.state.ModelSearch = query
	default:
		return models.ErrInvalidTransition
	}
	return nil
}

// Complete reports whether all four selections have been made
func (m Machine) Complete() bool {
	return m.state.Selection.Complete()
}

func (m Machine) transition(to models.View, direction models.Direction) {
	m.state.View = to
	m.state.Direction = direction
}

// FilterBrands returns brands whose name contains the query,
// case-insensitively. An empty query matches everything.
func FilterBrands(brands []models.CarBrand, query string) []models.CarBrand {
	if query == "" {
		return brands
	}
	q := strings.ToLower(query)
	filtered := make([]models.CarBrand, 0, len(brands))
	for _, brand := range brands {
		if strings.Contains(strings.ToLower(brand.Brand), q) {
			filtered = append(filtered, brand)
		}
	}
	return filtered
}

// FilterModels returns models whose name contains the query,
// case-insensitively. An empty query matches everything.
func FilterModels(carModels []models.CarModel, query string) []models.CarModel {
	if query == "" {
		return carModels
	}
	q := strings.ToLower(query)
	filtered := make([]models.CarModel, 0, len(carModels))
	for _, model := range carModels {
		if strings.Contains(strings.ToLower(model.Name), q) {
			filtered = append(filtered, model)
		}
	}
	return filtered
}

// Years returns the 30 most recent calendar years ending at now's year,
// descending
func Years(now time.Time) []string {
	years := make([]string, 0, YearCount)
	current := now.Year()
	for i := 0; i < YearCount; i++ {
		years = append(years, strconv.Itoa(current-i))
	}
	return years
}

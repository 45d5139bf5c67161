package models

// CarModel represents a single car model offered by a brand
type CarModel struct {
	Name      string   `json:"name"`
	ImageURL  string   `json:"imageUrl,omitempty"`
	FuelTypes []string `json:"fuel_types,omitempty"`
}

// CarBrand represents a car brand and its models as served by the catalog API
type CarBrand struct {
	Brand   string     `json:"brand"`
	LogoURL string     `json:"logoUrl,omitempty"`
	Models  []CarModel `json:"models"`
}

// FuelTypeIcon decorates a fuel-type label with an icon reference
type FuelTypeIcon struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// FuelOption is a fuel choice for the selected model, joined with its icon
type FuelOption struct {
	Type    string `json:"type"`
	IconURL string `json:"iconUrl,omitempty"`
}

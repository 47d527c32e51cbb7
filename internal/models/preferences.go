package models

import "strings"

// Preferences steer the recommendation feed of a renter.
type Preferences struct {
	PreferenceText string `json:"preference_text"`
	MinPrice       Amount `json:"min_price"`
	MaxPrice       Amount `json:"max_price"`
	Facilities
}

func (p Preferences) Validate() error {
	errs := ValidationError{}
	if p.MinPrice < 0 {
		errs["min_price"] = "Minimum price cannot be negative"
	}
	if p.MaxPrice < 0 {
		errs["max_price"] = "Maximum price cannot be negative"
	}
	if p.MaxPrice > 0 && p.MinPrice > p.MaxPrice {
		errs["max_price"] = "Maximum price must not be below minimum price"
	}
	if len(strings.TrimSpace(p.PreferenceText)) > 500 {
		errs["preference_text"] = "Preference text is too long"
	}
	return errs.OrNil()
}

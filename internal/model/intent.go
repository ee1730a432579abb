package model

import "strings"

// SearchCriteria represents the constraints extracted from one conversation turn.
// A nil field means unconstrained, not zero.
type SearchCriteria struct {
	MaxBudget  *float64 `json:"max_budget"`
	MinBudget  *float64 `json:"min_budget"`
	City       *string  `json:"city"`
	Furnished  *bool    `json:"furnished"`
	MinSurface *float64 `json:"min_surface"`
	MaxSurface *float64 `json:"max_surface"`
	Rooms      *int     `json:"rooms"`       // 0 = colocation
	MaxResults *int     `json:"max_results"` // presentation hint only
}

// CityName returns the trimmed city or zone token, or "" when absent
func (c SearchCriteria) CityName() string {
	if c.City == nil {
		return ""
	}
	return strings.TrimSpace(*c.City)
}

// HasConstraints reports whether any search constraint is set
func (c SearchCriteria) HasConstraints() bool {
	return c.MaxBudget != nil ||
		c.MinBudget != nil ||
		c.CityName() != "" ||
		c.Furnished != nil ||
		c.MinSurface != nil ||
		c.MaxSurface != nil ||
		c.Rooms != nil
}

// IntentAnalysis is the extractor's verdict for a turn
type IntentAnalysis struct {
	IsListingSearch bool           `json:"is_listing_search"`
	Criteria        SearchCriteria `json:"criteria"`
	Reasoning       string         `json:"reasoning"`
}

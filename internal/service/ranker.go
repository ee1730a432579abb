package service

import (
	"math"
	"sort"
	"strings"
	"time"

	"studenthousing/internal/model"
	"studenthousing/internal/utils"
)

// Match reason constants
const (
	ReasonCityMatch       = "Ville recherchée"
	ReasonRoomsMatch      = "Typologie recherchée"
	ReasonFurnishedMatch  = "Meublé comme demandé"
	ReasonPriceMatch      = "Dans le budget"
	ReasonAvailableNow    = "Disponible immédiatement"
	ReasonEnergyEfficient = "Bonne performance énergétique"
	ReasonGeneralMatch    = "Correspond à la recherche"
)

// AvailabilityLayout is the format of listing availability dates
const AvailabilityLayout = "2006-01-02"

// Ranker orders listing cards by a weighted blend of similarity, budget fit and availability.
// It never adds or removes cards.
type Ranker struct {
	weightSimilarity   float64
	weightPrice        float64
	weightAvailability float64
	zones              *ZoneMap
	now                func() time.Time
}

// NewRanker creates a new ranker with specified weights
func NewRanker(weightSimilarity, weightPrice, weightAvailability float64) *Ranker {
	return &Ranker{
		weightSimilarity:   weightSimilarity,
		weightPrice:        weightPrice,
		weightAvailability: weightAvailability,
		now:                time.Now,
	}
}

// WithZones lets a zone criterion such as "Paris" match listings in its member cities
func (r *Ranker) WithZones(zones *ZoneMap) *Ranker {
	r.zones = zones
	return r
}

// Rank scores the cards and returns them sorted by score, ties keeping retrieval order
func (r *Ranker) Rank(cards []model.ListingCard, criteria model.SearchCriteria) []model.ListingCard {
	ranked := make([]model.ListingCard, len(cards))
	copy(ranked, cards)

	now := r.now()
	for i := range ranked {
		card := &ranked[i]

		simScore := clamp01(card.Score)
		priceScore := r.calculatePriceScore(card.RentCCEur, criteria)
		availScore := r.calculateAvailabilityScore(card.AvailabilityDate, now)

		card.RankScore = (r.weightSimilarity * simScore) +
			(r.weightPrice * priceScore) +
			(r.weightAvailability * availScore)
		card.MatchedReasons = r.generateMatchedReasons(*card, criteria, now)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RankScore > ranked[j].RankScore
	})

	return ranked
}

// matchesPlace reports whether the listing city is the searched city or lies in the searched zone
func (r *Ranker) matchesPlace(place, city string) bool {
	if utils.SamePlace(place, city) {
		return true
	}
	if r.zones == nil {
		return false
	}
	zone, ok := r.zones.Resolve(place)
	return ok && r.zones.Contains(zone, city)
}

// calculatePriceScore calculates how well the rent matches the budget
func (r *Ranker) calculatePriceScore(rent float64, c model.SearchCriteria) float64 {
	if rent <= 0 {
		return 0.5 // Neutral score if no rent
	}

	if c.MinBudget == nil && c.MaxBudget == nil {
		return 1.0
	}

	if c.MinBudget != nil && c.MaxBudget != nil {
		minPrice, maxPrice := *c.MinBudget, *c.MaxBudget
		if rent < minPrice || rent > maxPrice {
			return 0.0
		}

		priceRange := maxPrice - minPrice
		if priceRange == 0 {
			return 1.0
		}
		midpoint := (minPrice + maxPrice) / 2
		return math.Max(0, 1.0-math.Abs(rent-midpoint)/(priceRange/2))
	}

	if c.MinBudget != nil {
		if rent < *c.MinBudget {
			return 0.0
		}
		return 1.0
	}

	if rent > *c.MaxBudget {
		return 0.0
	}
	if *c.MaxBudget == 0 {
		return 1.0
	}
	// Cheaper is better for a student budget
	ratio := rent / *c.MaxBudget
	return 1.0 - 0.5*ratio
}

// calculateAvailabilityScore favours listings available now
func (r *Ranker) calculateAvailabilityScore(date string, now time.Time) float64 {
	available, err := time.Parse(AvailabilityLayout, strings.TrimSpace(date))
	if err != nil {
		return 0.5 // Neutral score if no date
	}

	daysUntil := available.Sub(now).Hours() / 24
	if daysUntil <= 0 {
		return 1.0
	}

	// After 30 days: ~0.74, after 90 days: ~0.41
	return clamp01(math.Exp(-0.01 * daysUntil))
}

// generateMatchedReasons generates human-readable reasons for why this listing matched
func (r *Ranker) generateMatchedReasons(card model.ListingCard, c model.SearchCriteria, now time.Time) []string {
	reasons := []string{}

	if city := c.CityName(); city != "" && r.matchesPlace(city, card.City) {
		reasons = append(reasons, ReasonCityMatch)
	}
	if c.Rooms != nil && *c.Rooms == card.Rooms {
		reasons = append(reasons, ReasonRoomsMatch)
	}
	if c.Furnished != nil && *c.Furnished == card.Furnished {
		reasons = append(reasons, ReasonFurnishedMatch)
	}
	if (c.MinBudget != nil || c.MaxBudget != nil) && withinBudget(card.RentCCEur, c) {
		reasons = append(reasons, ReasonPriceMatch)
	}
	if available, err := time.Parse(AvailabilityLayout, card.AvailabilityDate); err == nil && !available.After(now) {
		reasons = append(reasons, ReasonAvailableNow)
	}
	switch strings.ToUpper(card.EnergyLabel) {
	case "A", "B":
		reasons = append(reasons, ReasonEnergyEfficient)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, ReasonGeneralMatch)
	}

	return reasons
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

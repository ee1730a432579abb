package service

import (
	"fmt"
	"sort"

	"studenthousing/internal/model"
)

// StudioSurfaceThreshold separates studios from T1 among single-room listings (m²)
const StudioSurfaceThreshold = 23.0

// Assembly is the partitioned and grouped result of a turn
type Assembly struct {
	Listings      []model.ListingCard // every listing kept after the zone filter, all price tiers
	InBudget      []model.ListingCard // subset satisfying min/max budget
	Informational []model.ResultRecord
	Records       []model.ResultRecord // raw-mode view: kept hits in retrieval order
	Cities        []string             // distinct listing cities, sorted
	ByCity        map[string][]model.ListingCard
	MinRent       float64
	MaxRent       float64
	Widened       bool
}

// HasListings reports whether any listing survived assembly
func (a *Assembly) HasListings() bool {
	return len(a.Listings) > 0
}

// ResultAssembler partitions hits and applies the post-hoc filters the index cannot express
type ResultAssembler struct {
	zones *ZoneMap
}

// NewResultAssembler creates a new result assembler
func NewResultAssembler(zones *ZoneMap) *ResultAssembler {
	return &ResultAssembler{zones: zones}
}

// Assemble builds the assembly for a retrieval. Listing hits are dropped for informational turns.
func (a *ResultAssembler) Assemble(r *Retrieval, intent model.IntentAnalysis) *Assembly {
	out := &Assembly{
		Listings:      []model.ListingCard{},
		InBudget:      []model.ListingCard{},
		Informational: []model.ResultRecord{},
		Records:       []model.ResultRecord{},
		ByCity:        map[string][]model.ListingCard{},
		Widened:       r.Widened,
	}

	criteria := intent.Criteria
	zone, isZone := a.zones.Resolve(criteria.CityName())

	for _, h := range r.Hits {
		if !h.IsListing() {
			rec := model.RecordFromHit(h)
			out.Informational = append(out.Informational, rec)
			out.Records = append(out.Records, rec)
			continue
		}
		if !intent.IsListingSearch {
			continue
		}

		card := CardFromHit(h)
		if isZone && !a.zones.Contains(zone, card.City) {
			continue
		}
		out.Listings = append(out.Listings, card)
		out.Records = append(out.Records, model.RecordFromHit(h))
	}

	for i, card := range out.Listings {
		if i == 0 || card.RentCCEur < out.MinRent {
			out.MinRent = card.RentCCEur
		}
		if i == 0 || card.RentCCEur > out.MaxRent {
			out.MaxRent = card.RentCCEur
		}
		if withinBudget(card.RentCCEur, criteria) {
			out.InBudget = append(out.InBudget, card)
		}
		out.ByCity[card.City] = append(out.ByCity[card.City], card)
	}

	for city := range out.ByCity {
		out.Cities = append(out.Cities, city)
	}
	sort.Strings(out.Cities)

	return out
}

// CardFromHit decodes a listing hit into a card
func CardFromHit(h model.Hit) model.ListingCard {
	rec := model.ListingFromPayload(h.Payload)
	return model.ListingCard{
		ListingRecord: rec,
		Content:       h.Payload.String("content", ""),
		URL:           h.Payload.String("url", ""),
		Score:         h.Score,
		Typology:      TypologyLabel(rec.Rooms, rec.SurfaceM2),
	}
}

// TypologyLabel derives the typology of a listing from its room count and surface
func TypologyLabel(rooms int, surface float64) string {
	switch {
	case rooms <= 0:
		return "Colocation"
	case rooms == 1 && surface < StudioSurfaceThreshold:
		return "Studio"
	default:
		return fmt.Sprintf("T%d", rooms)
	}
}

func withinBudget(rent float64, c model.SearchCriteria) bool {
	if c.MinBudget != nil && rent < *c.MinBudget {
		return false
	}
	if c.MaxBudget != nil && rent > *c.MaxBudget {
		return false
	}
	return true
}

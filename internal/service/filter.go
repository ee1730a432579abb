package service

import (
	"strings"

	"studenthousing/internal/model"
)

// Payload keys used in index filters
const (
	FieldType      = "type"
	FieldCity      = "city"
	FieldFurnished = "furnished"
	FieldRooms     = "rooms"
)

// FilterBuilder maps an intent to an index filter.
// Budget and surface never reach the index: they are evaluated by the ResultAssembler.
type FilterBuilder struct {
	zones *ZoneMap
}

// NewFilterBuilder creates a new filter builder
func NewFilterBuilder(zones *ZoneMap) *FilterBuilder {
	return &FilterBuilder{zones: zones}
}

// Build returns the primary filter for a turn. override is an optional category tag
// supplied by the caller; it is ignored for informational turns.
func (b *FilterBuilder) Build(intent model.IntentAnalysis, override string) model.Filter {
	return b.build(intent, override, true)
}

// Relax returns the fallback filter: the primary filter without any city condition
func (b *FilterBuilder) Relax(intent model.IntentAnalysis, override string) model.Filter {
	return b.build(intent, override, false)
}

func (b *FilterBuilder) build(intent model.IntentAnalysis, override string, withCity bool) model.Filter {
	if !intent.IsListingSearch {
		return model.Filter{
			MustNot: []model.Condition{{Key: FieldType, Value: model.CategoryListing}},
		}
	}

	var f model.Filter
	criteria := intent.Criteria

	override = strings.TrimSpace(override)
	switch {
	case override != "":
		f.Must = append(f.Must, model.Condition{Key: FieldType, Value: override})
	case !criteria.HasConstraints():
		f.Must = append(f.Must, model.Condition{Key: FieldType, Value: model.CategoryListing})
	}

	if city := criteria.CityName(); withCity && city != "" {
		if _, isZone := b.zones.Resolve(city); !isZone {
			f.Must = append(f.Must, model.Condition{Key: FieldCity, Value: b.zones.CanonicalCity(city)})
		}
	}
	if criteria.Furnished != nil {
		f.Must = append(f.Must, model.Condition{Key: FieldFurnished, Value: *criteria.Furnished})
	}
	if criteria.Rooms != nil {
		f.Must = append(f.Must, model.Condition{Key: FieldRooms, Value: *criteria.Rooms})
	}

	return f
}

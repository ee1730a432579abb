package service

import (
	"fmt"
	"strings"

	"studenthousing/internal/config"
	"studenthousing/internal/utils"
)

// ZoneMap resolves geographic zone names to their member cities.
// A zone whose only member is a city of the same name behaves as a plain city.
type ZoneMap struct {
	zones []config.Zone
}

// NewZoneMap creates a zone map from configuration
func NewZoneMap(zones []config.Zone) *ZoneMap {
	return &ZoneMap{zones: zones}
}

// Zones returns the configured zones in declaration order
func (z *ZoneMap) Zones() []config.Zone {
	return z.zones
}

// Resolve returns the zone named by token. The boolean is true only for a zone that
// expands to cities other than itself.
func (z *ZoneMap) Resolve(token string) (config.Zone, bool) {
	if strings.TrimSpace(token) == "" {
		return config.Zone{}, false
	}
	for _, zone := range z.zones {
		if utils.SamePlace(zone.Name, token) || (zone.ID != "" && utils.SamePlace(zone.ID, token)) {
			if len(zone.Cities) == 1 && utils.SamePlace(zone.Cities[0], zone.Name) {
				return zone, false
			}
			return zone, true
		}
	}
	return config.Zone{}, false
}

// Contains reports whether city belongs to zone
func (z *ZoneMap) Contains(zone config.Zone, city string) bool {
	for _, c := range zone.Cities {
		if utils.SamePlace(c, city) {
			return true
		}
	}
	return false
}

// CanonicalCity returns the configured spelling of a known city, or the trimmed token
func (z *ZoneMap) CanonicalCity(token string) string {
	token = strings.TrimSpace(token)
	for _, zone := range z.zones {
		for _, c := range zone.Cities {
			if utils.SamePlace(c, token) {
				return c
			}
		}
	}
	return token
}

// PromptHints renders the zone map for the extraction prompt
func (z *ZoneMap) PromptHints() string {
	var b strings.Builder
	for _, zone := range z.zones {
		fmt.Fprintf(&b, "- \"%s\" → %s\n", zone.Name, strings.Join(zone.Cities, ", "))
	}
	return b.String()
}

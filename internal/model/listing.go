package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// CategoryListing is the category tag carried by listing points in the shared index
const CategoryListing = "appartement"

// Hit is a single nearest-neighbour match returned by a vector index
type Hit struct {
	ID      string  `json:"id"`
	Payload JSONMap `json:"payload"`
	Score   float64 `json:"score"`
}

// Category returns the category tag of the hit
func (h Hit) Category() string {
	return h.Payload.String("type", "")
}

// IsListing reports whether the hit is a listing point
func (h Hit) IsListing() bool {
	return h.Category() == CategoryListing
}

// ListingRecord represents a listing (a concrete unit or a typology) as stored in the index payload
type ListingRecord struct {
	ID               string  `json:"id"`
	TypologieID      string  `json:"typologie_id"`
	City             string  `json:"city"`
	Rooms            int     `json:"rooms"`
	SurfaceM2        float64 `json:"surface_m2"`
	SurfaceMin       float64 `json:"surface_min"`
	SurfaceMax       float64 `json:"surface_max"`
	Furnished        bool    `json:"furnished"`
	RentCCEur        float64 `json:"rent_cc_eur"`
	AvailabilityDate string  `json:"availability_date"`
	EnergyLabel      string  `json:"energy_label"`
	PostalCode       string  `json:"postal_code"`
	Floor            int     `json:"floor"`
	Orientation      string  `json:"orientation"`
	BedSize          int     `json:"bed_size"`
	HasAC            bool    `json:"has_ac"`
	ApplicationFee   float64 `json:"application_fee"`
	DepositMonths    int     `json:"deposit_months"`
	IsTypologie      bool    `json:"is_typologie"`
}

// ListingFromPayload decodes a listing payload, applying the catalogue defaults for missing attributes
func ListingFromPayload(p JSONMap) ListingRecord {
	return ListingRecord{
		ID:               p.String("apartment_id", ""),
		TypologieID:      p.String("typologie_id", ""),
		City:             p.String("city", ""),
		Rooms:            p.Int("rooms", 1),
		SurfaceM2:        p.Float("surface_m2", 0),
		SurfaceMin:       p.Float("surface_min", 0),
		SurfaceMax:       p.Float("surface_max", 0),
		Furnished:        p.Bool("furnished", false),
		RentCCEur:        p.Float("rent_cc_eur", 0),
		AvailabilityDate: p.String("availability_date", ""),
		EnergyLabel:      p.String("energy_label", ""),
		PostalCode:       p.String("postal_code", ""),
		Floor:            p.Int("floor", 0),
		Orientation:      p.String("orientation", "Nord"),
		BedSize:          p.Int("bed_size", 140),
		HasAC:            p.Bool("has_ac", false),
		ApplicationFee:   p.Float("application_fee", 100),
		DepositMonths:    p.Int("deposit_months", 1),
		IsTypologie:      p.Bool("is_typologie", false),
	}
}

// ListingCard is a listing presented to the user
type ListingCard struct {
	ListingRecord
	Content        string   `json:"content"`
	URL            string   `json:"url,omitempty"`
	Score          float64  `json:"score"`
	Typology       string   `json:"typology"`
	RankScore      float64  `json:"rank_score,omitempty"`
	MatchedReasons []string `json:"matched_reasons,omitempty"`
}

// ResultRecord is a raw retrieval result: informational content or the text of a listing
type ResultRecord struct {
	Content string  `json:"content"`
	URL     string  `json:"url"`
	Type    string  `json:"type"`
	Score   float64 `json:"score"`
}

// RecordFromHit builds a ResultRecord from an index hit
func RecordFromHit(h Hit) ResultRecord {
	return ResultRecord{
		Content: h.Payload.String("content", ""),
		URL:     h.Payload.String("url", ""),
		Type:    h.Category(),
		Score:   h.Score,
	}
}

// JSONMap represents a JSON object field
type JSONMap map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}
}

// String returns the value under key as a string
func (j JSONMap) String(key, def string) string {
	switch v := j[key].(type) {
	case string:
		return v
	case nil:
		return def
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Float returns the value under key as a float64
func (j JSONMap) Float(key string, def float64) float64 {
	switch v := j[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// Int returns the value under key as an int
func (j JSONMap) Int(key string, def int) int {
	if _, ok := j[key]; !ok {
		return def
	}
	f := j.Float(key, float64(def))
	return int(f)
}

// Bool returns the value under key as a bool
func (j JSONMap) Bool(key string, def bool) bool {
	switch v := j[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListingFromPayload_Defaults(t *testing.T) {
	rec := ListingFromPayload(JSONMap{
		"type":         "appartement",
		"apartment_id": "LILLE_T1_ab12cd34",
		"city":         "Lille",
		"rent_cc_eur":  float64(710),
	})

	assert.Equal(t, "LILLE_T1_ab12cd34", rec.ID)
	assert.Equal(t, "Lille", rec.City)
	assert.Equal(t, 1, rec.Rooms)
	assert.Equal(t, 710.0, rec.RentCCEur)
	assert.Equal(t, "Nord", rec.Orientation)
	assert.Equal(t, 140, rec.BedSize)
	assert.Equal(t, 100.0, rec.ApplicationFee)
	assert.Equal(t, 1, rec.DepositMonths)
}

func TestListingFromPayload_DecodedJSON(t *testing.T) {
	var p JSONMap
	require.NoError(t, json.Unmarshal([]byte(`{
		"type": "appartement",
		"apartment_id": "ARCHAMPS_T0_1",
		"city": "Archamps",
		"rooms": 0,
		"surface_m2": 45.5,
		"furnished": true,
		"has_ac": "true",
		"floor": 3
	}`), &p))

	rec := ListingFromPayload(p)
	assert.Equal(t, 0, rec.Rooms)
	assert.Equal(t, 45.5, rec.SurfaceM2)
	assert.True(t, rec.Furnished)
	assert.True(t, rec.HasAC)
	assert.Equal(t, 3, rec.Floor)
}

func TestHit_Category(t *testing.T) {
	assert.True(t, Hit{Payload: JSONMap{"type": CategoryListing}}.IsListing())
	assert.False(t, Hit{Payload: JSONMap{"type": "faq"}}.IsListing())
	assert.False(t, Hit{Payload: JSONMap{}}.IsListing())
}

func TestJSONMap_Scan(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan([]byte(`{"city":"Lille"}`)))
	assert.Equal(t, "Lille", m.String("city", ""))

	require.NoError(t, m.Scan(`{"rooms":2}`))
	assert.Equal(t, 2, m.Int("rooms", 0))

	assert.Error(t, m.Scan(42))
}

func TestSearchCriteria_HasConstraints(t *testing.T) {
	blank := " "
	city := "Lille"
	n := 5
	rooms := 0

	assert.False(t, SearchCriteria{}.HasConstraints())
	assert.False(t, SearchCriteria{City: &blank}.HasConstraints())
	assert.False(t, SearchCriteria{MaxResults: &n}.HasConstraints())
	assert.True(t, SearchCriteria{City: &city}.HasConstraints())
	assert.True(t, SearchCriteria{Rooms: &rooms}.HasConstraints())
}

package service

import (
	"context"
	"testing"

	"studenthousing/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hitsOf(t *testing.T, index *countingIndex) []model.Hit {
	t.Helper()
	hits, err := index.Search(context.Background(), []float32{1, 0}, model.Filter{}, FetchLimit)
	require.NoError(t, err)
	return hits
}

func TestResultAssembler_ZoneFilter(t *testing.T) {
	index := seededIndex(
		listingPoint("MAS1", "Massy-Palaiseau", 1, 480, 18, true, 0),
		listingPoint("BDX1", "Bordeaux", 1, 450, 19, true, 1),
		listingPoint("VJF1", "Villejuif", 1, 520, 20, true, 2),
		listingPoint("LIL1", "Lille", 1, 430, 17, true, 3),
	)
	assembler := NewResultAssembler(testZones())
	intent := listingIntent(model.SearchCriteria{City: strPtr("Paris"), MaxBudget: floatPtr(500)})

	a := assembler.Assemble(&Retrieval{Hits: hitsOf(t, index)}, intent)

	require.Len(t, a.Listings, 2)
	for _, card := range a.Listings {
		assert.Contains(t, []string{"Massy-Palaiseau", "Villejuif", "Noisy-le-Grand"}, card.City)
	}
	assert.Equal(t, []string{"Massy-Palaiseau", "Villejuif"}, a.Cities)
	assert.Len(t, a.Records, 2)

	// every price tier is kept, budget only narrows InBudget
	require.Len(t, a.InBudget, 1)
	assert.Equal(t, "MAS1", a.InBudget[0].ID)
	assert.Equal(t, 480.0, a.MinRent)
	assert.Equal(t, 520.0, a.MaxRent)
}

func TestResultAssembler_PartitionAndGroup(t *testing.T) {
	index := seededIndex(
		listingPoint("LIL1", "Lille", 2, 690, 41, false, 0),
		infoPoint("faq1", "faq", "Les charges sont comprises", 1),
		listingPoint("LIL2", "Lille", 1, 510, 26, true, 2),
		listingPoint("BDX1", "Bordeaux", 0, 420, 14, true, 3),
	)
	assembler := NewResultAssembler(testZones())

	a := assembler.Assemble(&Retrieval{Hits: hitsOf(t, index)}, listingIntent(model.SearchCriteria{Furnished: boolPtr(true)}))

	assert.True(t, a.HasListings())
	assert.Len(t, a.Listings, 3)
	require.Len(t, a.Informational, 1)
	assert.Equal(t, "faq", a.Informational[0].Type)
	assert.Equal(t, []string{"Bordeaux", "Lille"}, a.Cities)
	assert.Len(t, a.ByCity["Lille"], 2)
	assert.Len(t, a.Records, 4)
	assert.Equal(t, "faq", a.Records[1].Type)

	assert.Equal(t, "T2", a.ByCity["Lille"][0].Typology)
	assert.Equal(t, "T1", a.ByCity["Lille"][1].Typology)
	assert.Equal(t, "Colocation", a.ByCity["Bordeaux"][0].Typology)
}

func TestResultAssembler_InformationalTurnDropsListings(t *testing.T) {
	index := seededIndex(
		listingPoint("LIL1", "Lille", 2, 690, 41, false, 0),
		infoPoint("faq1", "faq", "Nos services", 1),
	)
	assembler := NewResultAssembler(testZones())

	a := assembler.Assemble(&Retrieval{Hits: hitsOf(t, index)}, model.IntentAnalysis{})

	assert.False(t, a.HasListings())
	assert.Len(t, a.Informational, 1)
	assert.Len(t, a.Records, 1)
	assert.Empty(t, a.Cities)
}

func TestTypologyLabel(t *testing.T) {
	tests := []struct {
		rooms   int
		surface float64
		want    string
	}{
		{rooms: 0, surface: 12, want: "Colocation"},
		{rooms: 1, surface: 18, want: "Studio"},
		{rooms: 1, surface: 22.9, want: "Studio"},
		{rooms: 1, surface: 23, want: "T1"},
		{rooms: 2, surface: 18, want: "T2"},
		{rooms: 3, surface: 60, want: "T3"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TypologyLabel(tt.rooms, tt.surface), "rooms=%d surface=%g", tt.rooms, tt.surface)
	}
}

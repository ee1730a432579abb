package service

import (
	"testing"

	"studenthousing/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestFilterBuilder_Build(t *testing.T) {
	builder := NewFilterBuilder(testZones())

	tests := []struct {
		name     string
		intent   model.IntentAnalysis
		override string
		want     model.Filter
	}{
		{
			name:   "informational excludes listings",
			intent: model.IntentAnalysis{Criteria: model.SearchCriteria{City: strPtr("Lille")}},
			want: model.Filter{
				MustNot: []model.Condition{{Key: FieldType, Value: model.CategoryListing}},
			},
		},
		{
			name:   "no criteria forces listing category",
			intent: listingIntent(model.SearchCriteria{}),
			want: model.Filter{
				Must: []model.Condition{{Key: FieldType, Value: model.CategoryListing}},
			},
		},
		{
			name:     "override wins over forced category",
			intent:   listingIntent(model.SearchCriteria{}),
			override: "faq",
			want: model.Filter{
				Must: []model.Condition{{Key: FieldType, Value: "faq"}},
			},
		},
		{
			name: "plain city furnished rooms",
			intent: listingIntent(model.SearchCriteria{
				City:      strPtr("lille"),
				Furnished: boolPtr(true),
				Rooms:     intPtr(2),
			}),
			want: model.Filter{
				Must: []model.Condition{
					{Key: FieldCity, Value: "Lille"},
					{Key: FieldFurnished, Value: true},
					{Key: FieldRooms, Value: 2},
				},
			},
		},
		{
			name:   "zone omits city",
			intent: listingIntent(model.SearchCriteria{City: strPtr("Paris"), Rooms: intPtr(1)}),
			want: model.Filter{
				Must: []model.Condition{{Key: FieldRooms, Value: 1}},
			},
		},
		{
			name:   "colocation is a room filter",
			intent: listingIntent(model.SearchCriteria{Rooms: intPtr(0)}),
			want: model.Filter{
				Must: []model.Condition{{Key: FieldRooms, Value: 0}},
			},
		},
		{
			name:   "budget never reaches the index",
			intent: listingIntent(model.SearchCriteria{MaxBudget: floatPtr(600), MinBudget: floatPtr(300)}),
			want:   model.Filter{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, builder.Build(tt.intent, tt.override))
		})
	}
}

func TestFilterBuilder_Deterministic(t *testing.T) {
	builder := NewFilterBuilder(testZones())
	intent := listingIntent(model.SearchCriteria{
		City:      strPtr("Bordeaux"),
		Furnished: boolPtr(false),
		MaxBudget: floatPtr(700),
	})

	first := builder.Build(intent, "")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, builder.Build(intent, ""))
	}
}

func TestFilterBuilder_NoBudgetKeys(t *testing.T) {
	builder := NewFilterBuilder(testZones())
	intent := listingIntent(model.SearchCriteria{
		City:       strPtr("Villejuif"),
		MaxBudget:  floatPtr(700),
		MinBudget:  floatPtr(400),
		MinSurface: floatPtr(18),
	})

	for _, f := range []model.Filter{builder.Build(intent, ""), builder.Relax(intent, "")} {
		for _, c := range append(f.Must, f.MustNot...) {
			assert.NotContains(t, []string{"rent_cc_eur", "max_budget", "min_budget", "surface_m2"}, c.Key)
		}
	}
}

func TestFilterBuilder_Relax(t *testing.T) {
	builder := NewFilterBuilder(testZones())
	intent := listingIntent(model.SearchCriteria{
		City:      strPtr("Lille"),
		Furnished: boolPtr(true),
		Rooms:     intPtr(1),
	})

	relaxed := builder.Relax(intent, "")

	assert.False(t, relaxed.Has(FieldCity))
	assert.True(t, relaxed.Has(FieldFurnished))
	assert.True(t, relaxed.Has(FieldRooms))
}

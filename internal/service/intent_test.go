package service

import (
	"context"
	"strings"
	"testing"

	"studenthousing/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCriteriaExtractor_Extract(t *testing.T) {
	oracle := newScriptedOracle("```json\n" + `{
		"is_listing_search": true,
		"criteria": {"max_budget": 500, "city": " Paris ", "rooms": 1, "furnished": null, "max_results": 3},
		"reasoning": "studio à Paris"
	}` + "\n```")
	extractor := NewCriteriaExtractor(oracle, testZones(), nopLogger())

	intent := extractor.Extract(context.Background(), "studio à moins de 500 à Paris", nil)

	require.True(t, intent.IsListingSearch)
	require.NotNil(t, intent.Criteria.MaxBudget)
	assert.Equal(t, 500.0, *intent.Criteria.MaxBudget)
	assert.Equal(t, "Paris", intent.Criteria.CityName())
	require.NotNil(t, intent.Criteria.Rooms)
	assert.Equal(t, 1, *intent.Criteria.Rooms)
	assert.Nil(t, intent.Criteria.Furnished)
	require.NotNil(t, intent.Criteria.MaxResults)
	assert.Equal(t, 3, *intent.Criteria.MaxResults)
	assert.Equal(t, "studio à Paris", intent.Reasoning)

	call := oracle.lastCall()
	assert.Equal(t, 0.0, call.temperature)
	assert.Equal(t, extractorMaxTokens, call.maxTokens)
	assert.Equal(t, RoleSystem, call.messages[0].Role)
	assert.Contains(t, call.messages[0].Content, "Massy-Palaiseau")
}

func TestCriteriaExtractor_LegacyFlag(t *testing.T) {
	oracle := newScriptedOracle(`{"is_apartment_search": true, "criteria": {"city": "Lille"}, "reasoning": ""}`)
	extractor := NewCriteriaExtractor(oracle, testZones(), nopLogger())

	intent := extractor.Extract(context.Background(), "un logement à Lille", nil)

	assert.True(t, intent.IsListingSearch)
	assert.Equal(t, "Lille", intent.Criteria.CityName())
}

func TestCriteriaExtractor_HistoryWindow(t *testing.T) {
	oracle := newScriptedOracle(`{"is_listing_search": false, "criteria": {}, "reasoning": ""}`)
	extractor := NewCriteriaExtractor(oracle, testZones(), nopLogger())

	var history []model.ConversationTurn
	for i := 0; i < 10; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		history = append(history, model.ConversationTurn{Role: role, Content: strings.Repeat("x", i+1)})
	}

	extractor.Extract(context.Background(), "bonjour", history)

	messages := oracle.lastCall().messages
	// system + 6 history turns + current utterance
	require.Len(t, messages, 8)
	assert.Equal(t, strings.Repeat("x", 5), messages[1].Content)
	assert.Equal(t, RoleAssistant, messages[2].Role)
	assert.Equal(t, "Question actuelle : bonjour", messages[7].Content)
}

func TestCriteriaExtractor_FailsClosed(t *testing.T) {
	tests := []struct {
		name     string
		response string
		err      error
	}{
		{name: "oracle error", err: errFake},
		{name: "not json", response: "je ne sais pas"},
		{name: "missing flag", response: `{"criteria": {}}`},
		{name: "missing criteria", response: `{"is_listing_search": true}`},
		{name: "min budget above max", response: `{"is_listing_search": true, "criteria": {"min_budget": 900, "max_budget": 500}}`},
		{name: "negative budget", response: `{"is_listing_search": true, "criteria": {"max_budget": -1}}`},
		{name: "fractional rooms", response: `{"is_listing_search": true, "criteria": {"rooms": 1.5}}`},
		{name: "rooms out of range", response: `{"is_listing_search": true, "criteria": {"rooms": 42}}`},
		{name: "max results out of range", response: `{"is_listing_search": true, "criteria": {"max_results": 0}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := newScriptedOracle(tt.response)
			oracle.err = tt.err
			extractor := NewCriteriaExtractor(oracle, testZones(), nopLogger())

			intent := extractor.Extract(context.Background(), "un studio", nil)

			assert.False(t, intent.IsListingSearch)
			assert.False(t, intent.Criteria.HasConstraints())
			assert.NotEmpty(t, intent.Reasoning)
		})
	}
}

func TestCriteriaExtractor_NoOracle(t *testing.T) {
	extractor := NewCriteriaExtractor(nil, testZones(), nopLogger())

	intent := extractor.Extract(context.Background(), "un studio", nil)

	assert.False(t, intent.IsListingSearch)
	assert.Equal(t, "language oracle not configured", intent.Reasoning)
}

func TestCriteriaExtractor_EmptyUtterance(t *testing.T) {
	oracle := newScriptedOracle()
	extractor := NewCriteriaExtractor(oracle, testZones(), nopLogger())

	intent := extractor.Extract(context.Background(), "   ", nil)

	assert.False(t, intent.IsListingSearch)
	assert.Empty(t, oracle.calls)
}

func TestCriteriaExtractor_BlankCityDropped(t *testing.T) {
	oracle := newScriptedOracle(`{"is_listing_search": true, "criteria": {"city": "  "}, "reasoning": ""}`)
	extractor := NewCriteriaExtractor(oracle, testZones(), nopLogger())

	intent := extractor.Extract(context.Background(), "un logement", nil)

	assert.True(t, intent.IsListingSearch)
	assert.Nil(t, intent.Criteria.City)
}

package service

import (
	"context"
	"strings"
	"testing"

	"studenthousing/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseComposer_Disambiguation(t *testing.T) {
	oracle := newScriptedOracle("  Nous avons des résidences à Bordeaux et Lille. Laquelle vous intéresse ?  ")
	composer := NewResponseComposer(oracle, nopLogger())
	a := assemblyFor("Bordeaux", "Lille")
	d := Decision{
		Outcome:      OutcomeMultiCityAmbiguous,
		Register:     RegisterPropose,
		QuickReplies: cityReplies(a.Cities),
		Listings:     []model.ListingCard{},
	}

	resp, err := composer.Compose(context.Background(), "un studio", nil, listingIntent(model.SearchCriteria{}), a, d)

	require.NoError(t, err)
	assert.Equal(t, "Nous avons des résidences à Bordeaux et Lille. Laquelle vous intéresse ?", resp.Answer)
	assert.False(t, resp.HasApartments)
	assert.Empty(t, resp.Apartments)
	assert.Len(t, resp.QuickReplies, 3)

	call := oracle.lastCall()
	assert.Equal(t, composerTemperature, call.temperature)
	assert.Equal(t, listingMaxTokens, call.maxTokens)
	assert.Contains(t, call.messages[1].Content, "Bordeaux, Lille")
	assert.Contains(t, call.messages[1].Content, "CHOIX DE LA VILLE")
}

func TestResponseComposer_DirectPresentationCapsCards(t *testing.T) {
	oracle := newScriptedOracle("Voici les logements.")
	composer := NewResponseComposer(oracle, nopLogger())
	a := assemblyFor("Lille", "Lille", "Lille")
	a.Widened = true
	d := Decision{Outcome: OutcomeSingleCityOrSpecified, Register: RegisterDisplay, Listings: a.Listings}
	intent := listingIntent(model.SearchCriteria{City: strPtr("Lille"), MaxResults: intPtr(2)})

	resp, err := composer.Compose(context.Background(), "montrez-moi", nil, intent, a, d)

	require.NoError(t, err)
	assert.True(t, resp.HasApartments)
	assert.Len(t, resp.Apartments, 2)

	prompt := oracle.lastCall().messages[1].Content
	assert.Contains(t, prompt, "AFFICHAGE")
	assert.Contains(t, prompt, "recherche élargie")
}

func TestResponseComposer_Informational(t *testing.T) {
	oracle := newScriptedOracle("Nos résidences proposent une laverie.")
	composer := NewResponseComposer(oracle, nopLogger())
	a := &Assembly{Informational: []model.ResultRecord{{Content: strings.Repeat("é", 300), Type: "services"}}}
	history := []model.ConversationTurn{
		{Role: model.RoleUser, Content: "bonjour"},
		{Role: model.RoleAssistant, Content: "Bonjour, comment puis-je vous aider ?"},
	}

	resp, err := composer.Compose(context.Background(), "quels services ?", history, model.IntentAnalysis{}, a, Decision{Outcome: OutcomeNoListings, Register: RegisterPropose})

	require.NoError(t, err)
	assert.False(t, resp.HasApartments)

	call := oracle.lastCall()
	assert.Equal(t, informationalMaxTokens, call.maxTokens)
	assert.Equal(t, informationalSystemPrompt, call.messages[0].Content)
	assert.Contains(t, call.messages[1].Content, "Client: bonjour")
	assert.Contains(t, call.messages[1].Content, "Vous: Bonjour")
	assert.Contains(t, call.messages[1].Content, "- "+strings.Repeat("é", excerptLength)+"\n")
	assert.NotContains(t, call.messages[1].Content, strings.Repeat("é", excerptLength+1))
}

func TestResponseComposer_OracleFailure(t *testing.T) {
	oracle := newScriptedOracle()
	oracle.err = errFake
	composer := NewResponseComposer(oracle, nopLogger())

	_, err := composer.Compose(context.Background(), "un studio", nil, model.IntentAnalysis{}, &Assembly{}, Decision{Outcome: OutcomeNoListings})

	assert.ErrorIs(t, err, ErrNarrativeGeneration)
}

func TestResponseComposer_NoOracle(t *testing.T) {
	composer := NewResponseComposer(nil, nopLogger())

	_, err := composer.Compose(context.Background(), "un studio", nil, model.IntentAnalysis{}, &Assembly{}, Decision{Outcome: OutcomeNoListings})

	assert.ErrorIs(t, err, ErrNarrativeGeneration)
}

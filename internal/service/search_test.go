package service

import (
	"context"
	"testing"

	"studenthousing/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSearchLog struct {
	searches  []model.SearchLog
	feedbacks []string
	err       error
}

func (r *recordingSearchLog) LogSearch(_ context.Context, e model.SearchLog) error {
	r.searches = append(r.searches, e)
	return r.err
}

func (r *recordingSearchLog) LogFeedback(_ context.Context, searchID, listingID, action string) error {
	r.feedbacks = append(r.feedbacks, searchID+"/"+listingID+"/"+action)
	return r.err
}

type searchFixture struct {
	service  *SearchService
	oracle   *scriptedOracle
	embedder *constEmbedder
	index    *countingIndex
	log      *recordingSearchLog
}

func newSearchFixture(index *countingIndex, responses ...string) *searchFixture {
	zones := testZones()
	oracle := newScriptedOracle(responses...)
	embedder := newConstEmbedder()
	log := &recordingSearchLog{}
	logger := nopLogger()

	svc := NewSearchService(
		NewCriteriaExtractor(oracle, zones, logger),
		NewRetrievalEngine(embedder, index, NewFilterBuilder(zones), logger),
		NewResultAssembler(zones),
		NewConversationPolicy(zones, nil),
		fixedRanker(),
		NewResponseComposer(oracle, logger),
		log,
		logger,
	)
	return &searchFixture{service: svc, oracle: oracle, embedder: embedder, index: index, log: log}
}

func catalogue() *countingIndex {
	return seededIndex(
		listingPoint("MAS1", "Massy-Palaiseau", 1, 480, 18, true, 0),
		listingPoint("BDX1", "Bordeaux", 1, 450, 19, true, 1),
		listingPoint("VJF1", "Villejuif", 1, 560, 20, true, 2),
		listingPoint("LIL1", "Lille", 2, 690, 41, false, 3),
		infoPoint("svc1", "services", "Laverie, salle de sport et espace de coworking", 4),
	)
}

func TestSearchService_ZoneQuery(t *testing.T) {
	f := newSearchFixture(catalogue(),
		`{"is_listing_search": true, "criteria": {"max_budget": 500, "city": "Paris", "rooms": null}, "reasoning": "zone"}`,
		"Voici nos studios en Île-de-France.",
	)

	outcome, err := f.service.Query(context.Background(), &model.SearchRequest{Query: "studio à moins de 500 à Paris", Summarize: true})

	require.NoError(t, err)
	require.NotNil(t, outcome.Response)
	resp := outcome.Response
	assert.True(t, resp.HasApartments)
	assert.Empty(t, resp.QuickReplies)
	require.Len(t, resp.Apartments, 2)
	for _, c := range resp.Apartments {
		assert.Contains(t, []string{"Massy-Palaiseau", "Villejuif", "Noisy-le-Grand"}, c.City)
		assert.NotEmpty(t, c.MatchedReasons)
	}
	assert.Equal(t, outcome.SearchID, resp.SearchID)

	require.Len(t, f.index.filters, 1)
	assert.False(t, f.index.filters[0].Has(FieldCity))

	require.Len(t, f.log.searches, 1)
	assert.ElementsMatch(t, []string{"MAS1", "VJF1"}, f.log.searches[0].ListingIDs)
}

func TestSearchService_Disambiguation(t *testing.T) {
	f := newSearchFixture(catalogue(),
		`{"is_listing_search": true, "criteria": {"furnished": true}, "reasoning": ""}`,
		"Nous avons plusieurs villes. Laquelle vous intéresse ?",
	)

	outcome, err := f.service.Query(context.Background(), &model.SearchRequest{Query: "un logement meublé", Summarize: true})

	require.NoError(t, err)
	resp := outcome.Response
	assert.False(t, resp.HasApartments)
	assert.Empty(t, resp.Apartments)
	require.Len(t, resp.QuickReplies, 4)
	assert.Equal(t, "bordeaux", resp.QuickReplies[0].ID)
	assert.Equal(t, FlexibleReplyID, resp.QuickReplies[3].ID)
}

func TestSearchService_Informational(t *testing.T) {
	f := newSearchFixture(catalogue(),
		`{"is_listing_search": false, "criteria": {}, "reasoning": "services"}`,
		"Nous proposons une laverie et une salle de sport.",
	)

	outcome, err := f.service.Query(context.Background(), &model.SearchRequest{Query: "quels sont vos services ?", Summarize: true})

	require.NoError(t, err)
	assert.False(t, outcome.Response.HasApartments)
	assert.Empty(t, outcome.Response.Apartments)
	assert.Equal(t, "Nous proposons une laverie et une salle de sport.", outcome.Response.Answer)

	require.Len(t, f.index.filters, 1)
	assert.Equal(t, []model.Condition{{Key: FieldType, Value: model.CategoryListing}}, f.index.filters[0].MustNot)
}

func TestSearchService_RawModeUnconstrained(t *testing.T) {
	f := newSearchFixture(catalogue(),
		`{"is_listing_search": true, "criteria": {}, "reasoning": ""}`,
	)

	outcome, err := f.service.Query(context.Background(), &model.SearchRequest{Query: "un logement"})

	require.NoError(t, err)
	assert.Nil(t, outcome.Response)
	require.Len(t, outcome.Records, 4)
	for _, rec := range outcome.Records {
		assert.Equal(t, model.CategoryListing, rec.Type)
	}
	// only the extraction call reached the oracle
	assert.Len(t, f.oracle.calls, 1)
}

func TestSearchService_ExtractionFailureDegrades(t *testing.T) {
	f := newSearchFixture(catalogue(),
		"désolé, je ne peux pas répondre",
		"Je peux vous renseigner sur nos résidences.",
	)

	outcome, err := f.service.Query(context.Background(), &model.SearchRequest{Query: "un studio", Summarize: true})

	require.NoError(t, err)
	assert.False(t, outcome.Intent.IsListingSearch)
	assert.False(t, outcome.Response.HasApartments)
	assert.NotEmpty(t, outcome.Response.Answer)
}

func TestSearchService_Failures(t *testing.T) {
	t.Run("upstream", func(t *testing.T) {
		f := newSearchFixture(catalogue(), `{"is_listing_search": true, "criteria": {}, "reasoning": ""}`)
		f.embedder.err = errFake

		_, err := f.service.Query(context.Background(), &model.SearchRequest{Query: "un studio", Summarize: true})
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
		assert.Empty(t, f.log.searches)
	})

	t.Run("narrative", func(t *testing.T) {
		// no scripted narrative left after extraction
		f := newSearchFixture(catalogue(), `{"is_listing_search": false, "criteria": {}, "reasoning": ""}`)

		_, err := f.service.Query(context.Background(), &model.SearchRequest{Query: "vos services", Summarize: true})
		assert.ErrorIs(t, err, ErrNarrativeGeneration)
	})

	t.Run("query log failure is ignored", func(t *testing.T) {
		f := newSearchFixture(catalogue(), `{"is_listing_search": true, "criteria": {}, "reasoning": ""}`)
		f.log.err = errFake

		_, err := f.service.Query(context.Background(), &model.SearchRequest{Query: "un logement"})
		assert.NoError(t, err)
	})
}

func TestSearchService_StreamEvents(t *testing.T) {
	f := newSearchFixture(catalogue(),
		`{"is_listing_search": true, "criteria": {"city": "Nantes", "max_budget": 500}, "reasoning": ""}`,
		"Pas de résidence à Nantes, voici des alternatives.",
	)

	var events []string
	outcome, err := f.service.QueryStream(context.Background(), &model.SearchRequest{Query: "Nantes 500", Summarize: true},
		func(event string, _ any) error {
			events = append(events, event)
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, []string{"intent", "searching", "fallback", "policy"}, events)
	require.Len(t, f.log.searches, 1)
	assert.True(t, f.log.searches[0].FallbackUsed)

	// widened ceiling 650 drops the 690 listing; the named city skips disambiguation
	assert.True(t, outcome.Response.HasApartments)
	assert.Len(t, outcome.Response.Apartments, 3)
	assert.Empty(t, outcome.Response.QuickReplies)
}

func TestSearchService_LogFeedback(t *testing.T) {
	f := newSearchFixture(catalogue())

	err := f.service.LogFeedback(context.Background(), &model.FeedbackRequest{SearchID: "s1", ListingID: "MAS1", Action: ActionContact})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1/MAS1/contact"}, f.log.feedbacks)

	err = f.service.LogFeedback(context.Background(), &model.FeedbackRequest{SearchID: "s1", ListingID: "MAS1", Action: "like"})
	assert.ErrorIs(t, err, ErrValidation)
}

package service

import (
	"context"
	"fmt"
	"math"

	"studenthousing/internal/model"
	"studenthousing/internal/repository"

	"github.com/rs/zerolog"
)

const (
	// FetchLimit is the over-fetch cap of every index search
	FetchLimit = 20
	// BudgetWideningFactor expands the budget ceiling of the fallback search
	BudgetWideningFactor = 1.3
)

// Retrieval is the outcome of the search stage of one turn
type Retrieval struct {
	Hits           []model.Hit
	Widened        bool     // hits come from the fallback search
	WidenedCeiling *float64 // expanded budget ceiling applied to fallback listings
	Searches       int
}

// RetrievalEngine runs the primary filtered search and at most one relaxed fallback
type RetrievalEngine struct {
	embedder Embedder
	index    repository.VectorIndex
	filters  *FilterBuilder
	logger   zerolog.Logger
}

// NewRetrievalEngine creates a new retrieval engine
func NewRetrievalEngine(embedder Embedder, index repository.VectorIndex, filters *FilterBuilder, logger zerolog.Logger) *RetrievalEngine {
	return &RetrievalEngine{
		embedder: embedder,
		index:    index,
		filters:  filters,
		logger:   logger.With().Str("component", "retrieval").Logger(),
	}
}

// Retrieve embeds the query and searches the index. Embedding and index failures
// are returned wrapped in ErrUpstreamUnavailable.
func (r *RetrievalEngine) Retrieve(ctx context.Context, query string, intent model.IntentAnalysis, override string) (*Retrieval, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding: %v", ErrUpstreamUnavailable, err)
	}

	primary := r.filters.Build(intent, override)
	hits, err := r.index.Search(ctx, vector, primary, FetchLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: index search: %v", ErrUpstreamUnavailable, err)
	}
	result := &Retrieval{Hits: hits, Searches: 1}

	r.logger.Debug().Int("hits", len(hits)).Interface("filter", primary).Msg("primary search")

	if !intent.IsListingSearch || countListings(hits) > 0 {
		return result, nil
	}

	relaxed := r.filters.Relax(intent, override)
	fallbackHits, err := r.index.Search(ctx, vector, relaxed, FetchLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: fallback search: %v", ErrUpstreamUnavailable, err)
	}

	var ceiling *float64
	if maxBudget := intent.Criteria.MaxBudget; maxBudget != nil {
		c := WidenedCeiling(*maxBudget)
		ceiling = &c
	}

	widened := make([]model.Hit, 0, len(fallbackHits))
	for _, h := range fallbackHits {
		if !h.IsListing() {
			continue
		}
		if ceiling != nil && h.Payload.Float("rent_cc_eur", 0) > *ceiling {
			continue
		}
		widened = append(widened, h)
	}

	r.logger.Info().
		Int("fallback_hits", len(fallbackHits)).
		Int("kept", len(widened)).
		Interface("ceiling", ceiling).
		Msg("no listing in primary search, widened once")

	return &Retrieval{
		Hits:           widened,
		Widened:        true,
		WidenedCeiling: ceiling,
		Searches:       2,
	}, nil
}

// WidenedCeiling returns the expanded budget ceiling, truncated to whole euros
func WidenedCeiling(maxBudget float64) float64 {
	return math.Trunc(maxBudget * BudgetWideningFactor)
}

func countListings(hits []model.Hit) int {
	n := 0
	for _, h := range hits {
		if h.IsListing() {
			n++
		}
	}
	return n
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"studenthousing/internal/config"
	"studenthousing/internal/model"
	"studenthousing/internal/repository"

	"github.com/rs/zerolog"
)

var errFake = errors.New("fake failure")

// scriptedOracle returns its responses in order and records every call
type scriptedOracle struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     []oracleCall
}

type oracleCall struct {
	messages    []ChatMessage
	temperature float64
	maxTokens   int
}

func newScriptedOracle(responses ...string) *scriptedOracle {
	return &scriptedOracle{responses: responses}
}

func (o *scriptedOracle) Complete(_ context.Context, messages []ChatMessage, temperature float64, maxTokens int) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.calls = append(o.calls, oracleCall{messages: messages, temperature: temperature, maxTokens: maxTokens})
	if o.err != nil {
		return "", o.err
	}
	if len(o.responses) == 0 {
		return "", fmt.Errorf("no scripted response left")
	}
	r := o.responses[0]
	o.responses = o.responses[1:]
	return r, nil
}

func (o *scriptedOracle) lastCall() oracleCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls[len(o.calls)-1]
}

// constEmbedder maps every text to the same vector
type constEmbedder struct {
	vector []float32
	err    error
	texts  []string
}

func newConstEmbedder() *constEmbedder {
	return &constEmbedder{vector: []float32{1, 0}}
}

func (e *constEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.texts = append(e.texts, text)
	return e.vector, nil
}

func (e *constEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// countingIndex wraps an index and records every search filter
type countingIndex struct {
	repository.VectorIndex
	filters   []model.Filter
	searchErr error
}

func (c *countingIndex) Search(ctx context.Context, vector []float32, filter model.Filter, limit int) ([]model.Hit, error) {
	c.filters = append(c.filters, filter)
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	return c.VectorIndex.Search(ctx, vector, filter, limit)
}

func testZones() *ZoneMap {
	return NewZoneMap(config.DefaultZones())
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}

// listingPoint builds a listing point whose similarity to {1, 0} decreases with rank
func listingPoint(id, city string, rooms int, rent, surface float64, furnished bool, rank int) repository.Point {
	return repository.Point{
		ID:     id,
		Vector: []float32{1, float32(rank) * 0.1},
		Payload: model.JSONMap{
			"type":         model.CategoryListing,
			"apartment_id": id,
			"city":         city,
			"rooms":        rooms,
			"rent_cc_eur":  rent,
			"surface_m2":   surface,
			"furnished":    furnished,
			"content":      fmt.Sprintf("Logement %s à %s", id, city),
		},
	}
}

func infoPoint(id, category, content string, rank int) repository.Point {
	return repository.Point{
		ID:     id,
		Vector: []float32{1, float32(rank) * 0.1},
		Payload: model.JSONMap{
			"type":    category,
			"content": content,
			"url":     "https://example.org/" + id,
		},
	}
}

func seededIndex(points ...repository.Point) *countingIndex {
	idx := repository.NewMemoryIndex()
	if err := idx.Upsert(context.Background(), points); err != nil {
		panic(err)
	}
	return &countingIndex{VectorIndex: idx}
}

func listingIntent(c model.SearchCriteria) model.IntentAnalysis {
	return model.IntentAnalysis{IsListingSearch: true, Criteria: c}
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func boolPtr(v bool) *bool        { return &v }
func strPtr(v string) *string     { return &v }

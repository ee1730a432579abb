package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"studenthousing/internal/model"
)

// QdrantIndex is a minimal REST client to a Qdrant collection using cosine distance
type QdrantIndex struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
}

// QdrantOptions configures a QdrantIndex
type QdrantOptions struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// NewQdrantIndex creates a Qdrant REST client
func NewQdrantIndex(opts QdrantOptions) *QdrantIndex {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &QdrantIndex{
		baseURL:    strings.TrimRight(opts.URL, "/"),
		apiKey:     opts.APIKey,
		collection: opts.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

type qdrantMatch struct {
	Value any `json:"value"`
}

type qdrantCondition struct {
	Key   string      `json:"key"`
	Match qdrantMatch `json:"match"`
}

type qdrantFilter struct {
	Must    []qdrantCondition `json:"must,omitempty"`
	MustNot []qdrantCondition `json:"must_not,omitempty"`
}

type qdrantSearchRequest struct {
	Vector      []float32     `json:"vector"`
	Limit       int           `json:"limit"`
	WithPayload bool          `json:"with_payload"`
	Filter      *qdrantFilter `json:"filter,omitempty"`
}

type qdrantSearchResponse struct {
	Result []struct {
		ID      any           `json:"id"`
		Score   float64       `json:"score"`
		Payload model.JSONMap `json:"payload"`
	} `json:"result"`
}

type qdrantPoint struct {
	ID      string        `json:"id"`
	Vector  []float32     `json:"vector"`
	Payload model.JSONMap `json:"payload"`
}

// EnsureCollection creates the collection when it does not exist yet
func (q *QdrantIndex) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}

	status, err := q.do(ctx, http.MethodGet, q.collectionURL(""), nil, nil)
	if err == nil && status == http.StatusOK {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if _, err := q.do(ctx, http.MethodPut, q.collectionURL(""), body, nil); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", q.collection, err)
	}
	return nil
}

// Search performs a filtered nearest-neighbour search
func (q *QdrantIndex) Search(ctx context.Context, vector []float32, filter model.Filter, limit int) ([]model.Hit, error) {
	req := qdrantSearchRequest{
		Vector:      vector,
		Limit:       limit,
		WithPayload: true,
	}
	if !filter.IsEmpty() {
		req.Filter = toQdrantFilter(filter)
	}

	var resp qdrantSearchResponse
	if _, err := q.do(ctx, http.MethodPost, q.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	hits := make([]model.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		payload := r.Payload
		if payload == nil {
			payload = model.JSONMap{}
		}
		hits = append(hits, model.Hit{ID: idString(r.ID), Payload: payload, Score: r.Score})
	}
	return hits, nil
}

// Upsert writes points and waits for the operation to be applied
func (q *QdrantIndex) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	body := struct {
		Points []qdrantPoint `json:"points"`
	}{Points: make([]qdrantPoint, len(points))}
	for i, p := range points {
		body.Points[i] = qdrantPoint{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}

	if _, err := q.do(ctx, http.MethodPut, q.collectionURL("/points?wait=true"), body, nil); err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

// Delete removes points by id
func (q *QdrantIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string]any{"points": ids}
	if _, err := q.do(ctx, http.MethodPost, q.collectionURL("/points/delete?wait=true"), body, nil); err != nil {
		return fmt.Errorf("qdrant delete failed: %w", err)
	}
	return nil
}

func toQdrantFilter(f model.Filter) *qdrantFilter {
	out := &qdrantFilter{}
	for _, c := range f.Must {
		out.Must = append(out.Must, qdrantCondition{Key: c.Key, Match: qdrantMatch{Value: c.Value}})
	}
	for _, c := range f.MustNot {
		out.MustNot = append(out.MustNot, qdrantCondition{Key: c.Key, Match: qdrantMatch{Value: c.Value}})
	}
	return out
}

func (q *QdrantIndex) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", q.baseURL, url.PathEscape(q.collection), suffix)
}

// do sends a JSON request and decodes the JSON response into out when non-nil
func (q *QdrantIndex) do(ctx context.Context, method, endpoint string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("qdrant %s %s failed with status %d: %s", method, endpoint, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

package service

import (
	"context"
	"fmt"
	"strings"

	"studenthousing/internal/model"
	"studenthousing/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultChunkCategory is assigned to crawled chunks that were never classified
const DefaultChunkCategory = "autres"

const defaultIndexBatch = 64

// ProgressFunc reports how many records of a run have been indexed so far
type ProgressFunc func(done, total int)

// Indexer embeds records and writes them to the vector index
type Indexer struct {
	embedder     Embedder
	index        repository.VectorIndex
	contactEmail string
	batchSize    int
	logger       zerolog.Logger
}

// NewIndexer creates a new indexer; contactEmail is used to build listing contact links
func NewIndexer(embedder Embedder, index repository.VectorIndex, contactEmail string, logger zerolog.Logger) *Indexer {
	return &Indexer{
		embedder:     embedder,
		index:        index,
		contactEmail: contactEmail,
		batchSize:    defaultIndexBatch,
		logger:       logger.With().Str("component", "indexer").Logger(),
	}
}

// DocumentPointID returns the deterministic point id of a document
func DocumentPointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("doc:"+id)).String()
}

// ApartmentPointID returns the deterministic point id of a listing
func ApartmentPointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("apt:"+id)).String()
}

// ChunkPointID returns the deterministic point id of a crawled chunk
func ChunkPointID(hash string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("chunk:"+hash)).String()
}

type pendingPoint struct {
	id      string
	text    string
	payload model.JSONMap
}

// IndexDocuments embeds and upserts documents
func (ix *Indexer) IndexDocuments(ctx context.Context, docs []model.Document, progress ProgressFunc) error {
	pending := make([]pendingPoint, 0, len(docs))
	for _, d := range docs {
		pending = append(pending, pendingPoint{
			id:      DocumentPointID(d.ID),
			text:    d.Content,
			payload: DocumentPayload(d),
		})
	}
	return ix.upsert(ctx, "documents", pending, progress)
}

// IndexApartments embeds and upserts listings
func (ix *Indexer) IndexApartments(ctx context.Context, entries []model.ApartmentEntry, progress ProgressFunc) error {
	pending := make([]pendingPoint, 0, len(entries))
	for _, e := range entries {
		payload := ix.ApartmentPayload(e)
		pending = append(pending, pendingPoint{
			id:      ApartmentPointID(e.ID),
			text:    payload.String("content", ""),
			payload: payload,
		})
	}
	return ix.upsert(ctx, "apartments", pending, progress)
}

// IndexChunks embeds and upserts crawled chunks
func (ix *Indexer) IndexChunks(ctx context.Context, chunks []model.Chunk, progress ProgressFunc) error {
	pending := make([]pendingPoint, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Content) == "" {
			continue
		}
		category := InformationalCategory(c.Metadata.Type)
		pending = append(pending, pendingPoint{
			id:   ChunkPointID(c.Metadata.Hash),
			text: c.Content,
			payload: model.JSONMap{
				"content": c.Content,
				"url":     c.Metadata.URL,
				"lang":    c.Metadata.Lang,
				"hash":    c.Metadata.Hash,
				"type":    category,
			},
		})
	}
	return ix.upsert(ctx, "chunks", pending, progress)
}

// DeleteDocument removes a document from the index
func (ix *Indexer) DeleteDocument(ctx context.Context, id string) error {
	return ix.index.Delete(ctx, []string{DocumentPointID(id)})
}

// DeleteApartment removes a listing from the index
func (ix *Indexer) DeleteApartment(ctx context.Context, id string) error {
	return ix.DeleteApartments(ctx, []string{id})
}

// DeleteApartments removes several listings from the index
func (ix *Indexer) DeleteApartments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	points := make([]string, len(ids))
	for i, id := range ids {
		points[i] = ApartmentPointID(id)
	}
	return ix.index.Delete(ctx, points)
}

// InformationalCategory returns the tag indexed for a document or chunk.
// Blank tags and the listing tag map to DefaultChunkCategory: only listings carry the listing tag.
func InformationalCategory(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" || strings.EqualFold(tag, model.CategoryListing) {
		return DefaultChunkCategory
	}
	return tag
}

// DocumentPayload builds the index payload of a document
func DocumentPayload(d model.Document) model.JSONMap {
	return model.JSONMap{
		"content":     d.Content,
		"url":         d.URL,
		"type":        InformationalCategory(d.Type),
		"document_id": d.ID,
		"timestamp":   d.Timestamp,
		"lang":        "fr",
	}
}

// ApartmentPayload builds the index payload of a listing: its metadata plus the listing tags
func (ix *Indexer) ApartmentPayload(e model.ApartmentEntry) model.JSONMap {
	payload := model.JSONMap{}
	for k, v := range e.Metadata {
		payload[k] = v
	}

	content := strings.TrimSpace(e.Text)
	if content == "" {
		content = DescribeApartment(e.Metadata)
	}

	payload["content"] = content
	payload["type"] = model.CategoryListing
	payload["apartment_id"] = e.ID
	payload["url"] = fmt.Sprintf("mailto:%s?subject=Appartement %s", ix.contactEmail, e.ID)
	payload["lang"] = "fr"
	return payload
}

// DescribeApartment renders a French description of a listing from its metadata
func DescribeApartment(m model.JSONMap) string {
	rooms := m.Int("rooms", 1)
	surface := m.Float("surface_m2", 0)

	furnished := "non meublé"
	if m.Bool("furnished", false) {
		furnished = "meublé"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s de %g m² à %s", TypologyLabel(rooms, surface), furnished, surface, m.String("city", ""))
	if pc := m.String("postal_code", ""); pc != "" {
		fmt.Fprintf(&b, " (%s)", pc)
	}
	fmt.Fprintf(&b, ", loyer de %g € charges comprises par mois", m.Float("rent_cc_eur", 0))
	if date := m.String("availability_date", ""); date != "" {
		fmt.Fprintf(&b, ", disponible à partir du %s", date)
	}
	if label := m.String("energy_label", ""); label != "" && label != "N/A" {
		fmt.Fprintf(&b, ", DPE %s", label)
	}
	b.WriteString(".")
	return b.String()
}

func (ix *Indexer) upsert(ctx context.Context, kind string, pending []pendingPoint, progress ProgressFunc) error {
	total := len(pending)
	for start := 0; start < total; start += ix.batchSize {
		end := start + ix.batchSize
		if end > total {
			end = total
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.text
		}
		vectors, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("%w: embedding %s: %v", ErrUpstreamUnavailable, kind, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("%w: embedding %s: got %d vectors for %d texts", ErrUpstreamUnavailable, kind, len(vectors), len(batch))
		}

		points := make([]repository.Point, len(batch))
		for i, p := range batch {
			points[i] = repository.Point{ID: p.id, Vector: vectors[i], Payload: p.payload}
		}
		if err := ix.index.Upsert(ctx, points); err != nil {
			return fmt.Errorf("%w: upsert %s: %v", ErrUpstreamUnavailable, kind, err)
		}

		if progress != nil {
			progress(end, total)
		}
	}

	ix.logger.Info().Str("kind", kind).Int("count", total).Msg("indexed")
	return nil
}

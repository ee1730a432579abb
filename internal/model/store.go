package model

// Document is an informational record managed by the admin API
type Document struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	URL       string `json:"url"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// RecordID implements repository.Record
func (d Document) RecordID() string { return d.ID }

// ApartmentEntry is a listing record managed by the admin API.
// Metadata holds the listing attributes as they are copied into the index payload.
type ApartmentEntry struct {
	ID       string  `json:"id"`
	Text     string  `json:"text,omitempty"`
	Metadata JSONMap `json:"metadata"`
}

// RecordID implements repository.Record
func (a ApartmentEntry) RecordID() string { return a.ID }

// Chunk is a piece of crawled page text
type Chunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// RecordID implements repository.Record
func (c Chunk) RecordID() string { return c.Metadata.Hash }

// ChunkMetadata describes where a chunk comes from
type ChunkMetadata struct {
	URL  string `json:"url"`
	Lang string `json:"lang"`
	Hash string `json:"hash"`
	Type string `json:"type,omitempty"`
}

// DocumentInput is the payload for creating or updating a document
type DocumentInput struct {
	ID       string  `json:"id,omitempty"`
	Content  *string `json:"content,omitempty"`
	URL      *string `json:"url,omitempty"`
	Category *string `json:"category,omitempty"`
}

// ApartmentInput is the payload for creating or updating an apartment
type ApartmentInput struct {
	ID               string   `json:"id,omitempty"`
	City             *string  `json:"city,omitempty"`
	Rooms            *int     `json:"rooms,omitempty"`
	RentCCEur        *float64 `json:"rent_cc_eur,omitempty"`
	SurfaceM2        *float64 `json:"surface_m2,omitempty"`
	Furnished        *bool    `json:"furnished,omitempty"`
	AvailabilityDate *string  `json:"availability_date,omitempty"`
	EnergyLabel      *string  `json:"energy_label,omitempty"`
	PostalCode       *string  `json:"postal_code,omitempty"`
}

// IndexStatus reports the state of the background re-index job
type IndexStatus struct {
	InProgress      bool   `json:"in_progress"`
	LastUpdate      string `json:"last_update,omitempty"`
	LastAction      string `json:"last_action,omitempty"`
	DocumentsCount  int    `json:"documents_count"`
	ApartmentsCount int    `json:"apartments_count"`
}

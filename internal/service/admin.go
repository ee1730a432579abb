package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"studenthousing/internal/model"
	"studenthousing/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const minDocumentContent = 10

// Reindex actions reported by Status
const (
	ActionReindexAll       = "reindex_all"
	ActionReindexDocuments = "reindex_documents"
	ActionImportApartments = "import_apartments"
)

// ErrReindexInProgress is returned when a background re-index is already running
var ErrReindexInProgress = errors.New("reindex already in progress")

var requiredApartmentFields = []string{"city", "rooms", "rent_cc_eur", "surface_m2", "furnished"}

// ApartmentQuery filters the admin listing search; zero values are unconstrained
type ApartmentQuery struct {
	City     string
	Rooms    *int
	MinPrice *float64
	MaxPrice *float64
}

// AdminService manages the document and listing catalogues and keeps the index in sync with them
type AdminService struct {
	documents  *repository.JSONLStore[model.Document]
	apartments *repository.JSONLStore[model.ApartmentEntry]
	indexer    *Indexer
	logger     zerolog.Logger

	mu         sync.Mutex
	inProgress bool
	lastUpdate time.Time
	lastAction string

	now func() time.Time
}

// NewAdminService creates a new admin service
func NewAdminService(
	documents *repository.JSONLStore[model.Document],
	apartments *repository.JSONLStore[model.ApartmentEntry],
	indexer *Indexer,
	logger zerolog.Logger,
) *AdminService {
	return &AdminService{
		documents:  documents,
		apartments: apartments,
		indexer:    indexer,
		logger:     logger.With().Str("component", "admin").Logger(),
		now:        time.Now,
	}
}

// Status reports the re-index job state and the catalogue sizes
func (s *AdminService) Status() (*model.IndexStatus, error) {
	docs, err := s.documents.Count()
	if err != nil {
		return nil, err
	}
	apts, err := s.apartments.Count()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	status := &model.IndexStatus{
		InProgress:      s.inProgress,
		LastAction:      s.lastAction,
		DocumentsCount:  docs,
		ApartmentsCount: apts,
	}
	if !s.lastUpdate.IsZero() {
		status.LastUpdate = s.lastUpdate.Format(time.RFC3339)
	}
	return status, nil
}

// ListDocuments returns every document
func (s *AdminService) ListDocuments() ([]model.Document, error) {
	return s.documents.List()
}

// CreateDocument validates, stores and indexes a new document
func (s *AdminService) CreateDocument(ctx context.Context, in model.DocumentInput) (*model.Document, error) {
	if in.Content == nil || len([]rune(strings.TrimSpace(*in.Content))) < minDocumentContent {
		return nil, fmt.Errorf("%w: content must be at least %d characters", ErrValidation, minDocumentContent)
	}
	if err := validateDocumentCategory(in.Category); err != nil {
		return nil, err
	}

	doc := model.Document{
		ID:        in.ID,
		Content:   strings.TrimSpace(*in.Content),
		Timestamp: s.now().UTC().Format(time.RFC3339),
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if in.URL != nil {
		doc.URL = *in.URL
	}
	if in.Category != nil {
		doc.Type = *in.Category
	}

	if err := s.documents.Insert(doc); err != nil {
		return nil, err
	}
	if err := s.indexer.IndexDocuments(ctx, []model.Document{doc}, nil); err != nil {
		return nil, err
	}

	s.logger.Info().Str("document_id", doc.ID).Msg("document created")
	return &doc, nil
}

// UpdateDocument applies the provided fields to a document and re-indexes it
func (s *AdminService) UpdateDocument(ctx context.Context, id string, in model.DocumentInput) (*model.Document, error) {
	if err := validateDocumentCategory(in.Category); err != nil {
		return nil, err
	}
	doc, err := s.documents.Get(id)
	if err != nil {
		return nil, err
	}

	if in.Content != nil {
		content := strings.TrimSpace(*in.Content)
		if len([]rune(content)) < minDocumentContent {
			return nil, fmt.Errorf("%w: content must be at least %d characters", ErrValidation, minDocumentContent)
		}
		doc.Content = content
	}
	if in.URL != nil {
		doc.URL = *in.URL
	}
	if in.Category != nil {
		doc.Type = *in.Category
	}
	doc.Timestamp = s.now().UTC().Format(time.RFC3339)

	if err := s.documents.Update(doc); err != nil {
		return nil, err
	}
	if err := s.indexer.IndexDocuments(ctx, []model.Document{doc}, nil); err != nil {
		return nil, err
	}
	return &doc, nil
}

// validateDocumentCategory rejects the listing tag: listings are managed through the apartment endpoints
func validateDocumentCategory(category *string) error {
	if category != nil && strings.EqualFold(strings.TrimSpace(*category), model.CategoryListing) {
		return fmt.Errorf("%w: category %q is reserved for listings", ErrValidation, *category)
	}
	return nil
}

// DeleteDocument removes a document and its index point
func (s *AdminService) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.documents.Delete(id); err != nil {
		return err
	}
	return s.indexer.DeleteDocument(ctx, id)
}

// SearchDocuments returns documents whose content or category contains q, ignoring case
func (s *AdminService) SearchDocuments(q string) ([]model.Document, error) {
	docs, err := s.documents.List()
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(q))
	out := []model.Document{}
	for _, d := range docs {
		if strings.Contains(strings.ToLower(d.Content), needle) || strings.Contains(strings.ToLower(d.Type), needle) {
			out = append(out, d)
		}
	}
	return out, nil
}

// ListApartments returns every listing
func (s *AdminService) ListApartments() ([]model.ApartmentEntry, error) {
	return s.apartments.List()
}

// CreateApartment validates, stores and indexes a new listing
func (s *AdminService) CreateApartment(ctx context.Context, in model.ApartmentInput) (*model.ApartmentEntry, error) {
	if in.City == nil || strings.TrimSpace(*in.City) == "" {
		return nil, fmt.Errorf("%w: city is required", ErrValidation)
	}
	if in.Rooms == nil || *in.Rooms < 0 {
		return nil, fmt.Errorf("%w: rooms must be zero or more", ErrValidation)
	}
	if in.RentCCEur == nil || *in.RentCCEur <= 0 {
		return nil, fmt.Errorf("%w: rent_cc_eur must be positive", ErrValidation)
	}
	if in.SurfaceM2 == nil || *in.SurfaceM2 <= 0 {
		return nil, fmt.Errorf("%w: surface_m2 must be positive", ErrValidation)
	}

	city := strings.TrimSpace(*in.City)
	entry := model.ApartmentEntry{
		ID: in.ID,
		Metadata: model.JSONMap{
			"city":              city,
			"rooms":             *in.Rooms,
			"rent_cc_eur":       *in.RentCCEur,
			"surface_m2":        *in.SurfaceM2,
			"furnished":         in.Furnished != nil && *in.Furnished,
			"availability_date": derefOr(in.AvailabilityDate, ""),
			"energy_label":      derefOr(in.EnergyLabel, "N/A"),
			"postal_code":       derefOr(in.PostalCode, ""),
		},
	}
	if entry.ID == "" {
		entry.ID = NewApartmentID(city, *in.Rooms)
	}

	if err := s.apartments.Insert(entry); err != nil {
		return nil, err
	}
	if err := s.indexer.IndexApartments(ctx, []model.ApartmentEntry{entry}, nil); err != nil {
		return nil, err
	}

	s.logger.Info().Str("apartment_id", entry.ID).Str("city", city).Msg("apartment created")
	return &entry, nil
}

// UpdateApartment applies the provided fields to a listing and re-indexes it
func (s *AdminService) UpdateApartment(ctx context.Context, id string, in model.ApartmentInput) (*model.ApartmentEntry, error) {
	entry, err := s.apartments.Get(id)
	if err != nil {
		return nil, err
	}
	if entry.Metadata == nil {
		entry.Metadata = model.JSONMap{}
	}

	if in.City != nil {
		if strings.TrimSpace(*in.City) == "" {
			return nil, fmt.Errorf("%w: city must not be empty", ErrValidation)
		}
		entry.Metadata["city"] = strings.TrimSpace(*in.City)
	}
	if in.Rooms != nil {
		if *in.Rooms < 0 {
			return nil, fmt.Errorf("%w: rooms must be zero or more", ErrValidation)
		}
		entry.Metadata["rooms"] = *in.Rooms
	}
	if in.RentCCEur != nil {
		if *in.RentCCEur <= 0 {
			return nil, fmt.Errorf("%w: rent_cc_eur must be positive", ErrValidation)
		}
		entry.Metadata["rent_cc_eur"] = *in.RentCCEur
	}
	if in.SurfaceM2 != nil {
		if *in.SurfaceM2 <= 0 {
			return nil, fmt.Errorf("%w: surface_m2 must be positive", ErrValidation)
		}
		entry.Metadata["surface_m2"] = *in.SurfaceM2
	}
	if in.Furnished != nil {
		entry.Metadata["furnished"] = *in.Furnished
	}
	if in.AvailabilityDate != nil {
		entry.Metadata["availability_date"] = *in.AvailabilityDate
	}
	if in.EnergyLabel != nil {
		entry.Metadata["energy_label"] = *in.EnergyLabel
	}
	if in.PostalCode != nil {
		entry.Metadata["postal_code"] = *in.PostalCode
	}
	// the stored description no longer matches the attributes
	entry.Text = ""

	if err := s.apartments.Update(entry); err != nil {
		return nil, err
	}
	if err := s.indexer.IndexApartments(ctx, []model.ApartmentEntry{entry}, nil); err != nil {
		return nil, err
	}
	return &entry, nil
}

// DeleteApartment removes a listing and its index point
func (s *AdminService) DeleteApartment(ctx context.Context, id string) error {
	if _, err := s.apartments.Delete(id); err != nil {
		return err
	}
	return s.indexer.DeleteApartment(ctx, id)
}

// SearchApartments filters listings by city, room count and rent range
func (s *AdminService) SearchApartments(q ApartmentQuery) ([]model.ApartmentEntry, error) {
	entries, err := s.apartments.List()
	if err != nil {
		return nil, err
	}
	city := strings.TrimSpace(q.City)
	out := []model.ApartmentEntry{}
	for _, e := range entries {
		if city != "" && !strings.EqualFold(e.Metadata.String("city", ""), city) {
			continue
		}
		if q.Rooms != nil && e.Metadata.Int("rooms", -1) != *q.Rooms {
			continue
		}
		rent := e.Metadata.Float("rent_cc_eur", 0)
		if q.MinPrice != nil && rent < *q.MinPrice {
			continue
		}
		if q.MaxPrice != nil && rent > *q.MaxPrice {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// ImportApartments validates and replaces the whole listing catalogue, then re-indexes it in the background
func (s *AdminService) ImportApartments(entries []model.ApartmentEntry) (int, error) {
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.ID) == "" {
			return 0, fmt.Errorf("%w: entry %d: missing id", ErrValidation, i+1)
		}
		if e.Metadata == nil {
			return 0, fmt.Errorf("%w: entry %d: missing metadata", ErrValidation, i+1)
		}
		for _, field := range requiredApartmentFields {
			if _, ok := e.Metadata[field]; !ok {
				return 0, fmt.Errorf("%w: entry %d: metadata.%s is required", ErrValidation, i+1, field)
			}
		}
		if _, dup := seen[e.ID]; dup {
			return 0, fmt.Errorf("%w: entry %d: duplicate id %q", ErrValidation, i+1, e.ID)
		}
		seen[e.ID] = struct{}{}
	}

	if err := s.claim(ActionImportApartments); err != nil {
		return 0, err
	}

	previous, err := s.apartments.List()
	if err != nil {
		s.release(false)
		return 0, err
	}
	if err := s.apartments.ReplaceAll(entries); err != nil {
		s.release(false)
		return 0, err
	}

	var stale []string
	for _, e := range previous {
		if _, kept := seen[e.ID]; !kept {
			stale = append(stale, e.ID)
		}
	}

	s.run(ActionImportApartments, func(ctx context.Context) error {
		if err := s.reindex(ctx, false, true); err != nil {
			return err
		}
		return s.indexer.DeleteApartments(ctx, stale)
	})
	return len(entries), nil
}

// ReindexAll re-indexes every document then every listing in the background
func (s *AdminService) ReindexAll() error {
	return s.startReindex(ActionReindexAll, true, true)
}

// ReindexDocuments re-indexes every document in the background
func (s *AdminService) ReindexDocuments() error {
	return s.startReindex(ActionReindexDocuments, true, false)
}

// Wait blocks until no background re-index is running or ctx is done
func (s *AdminService) Wait(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		s.mu.Lock()
		running := s.inProgress
		s.mu.Unlock()
		if !running {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *AdminService) startReindex(action string, documents, apartments bool) error {
	if err := s.claim(action); err != nil {
		return err
	}
	s.run(action, func(ctx context.Context) error {
		return s.reindex(ctx, documents, apartments)
	})
	return nil
}

// claim takes the single background job slot
func (s *AdminService) claim(action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inProgress {
		return ErrReindexInProgress
	}
	s.inProgress = true
	s.lastAction = action
	return nil
}

// release frees the job slot; finished records the completion time
func (s *AdminService) release(finished bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inProgress = false
	if finished {
		s.lastUpdate = s.now()
	}
}

// run executes job in the background on a slot taken with claim
func (s *AdminService) run(action string, job func(ctx context.Context) error) {
	go func() {
		log := s.logger.With().Str("action", action).Logger()

		if err := job(context.Background()); err != nil {
			log.Error().Err(err).Msg("reindex failed")
		} else {
			log.Info().Msg("reindex complete")
		}
		s.release(true)
	}()
}

func (s *AdminService) reindex(ctx context.Context, documents, apartments bool) error {
	if documents {
		docs, err := s.documents.List()
		if err != nil {
			return err
		}
		if err := s.indexer.IndexDocuments(ctx, docs, nil); err != nil {
			return err
		}
	}
	if apartments {
		entries, err := s.apartments.List()
		if err != nil {
			return err
		}
		if err := s.indexer.IndexApartments(ctx, entries, nil); err != nil {
			return err
		}
	}
	return nil
}

// NewApartmentID builds a listing id of the form PARIS_T2_1a2b3c4d
func NewApartmentID(city string, rooms int) string {
	prefix := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(city)), " ", "_")
	return fmt.Sprintf("%s_T%d_%s", prefix, rooms, uuid.NewString()[:8])
}

func derefOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

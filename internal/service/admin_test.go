package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"studenthousing/internal/model"
	"studenthousing/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adminFixture struct {
	admin *AdminService
	index *repository.MemoryIndex
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	dir := t.TempDir()
	index := repository.NewMemoryIndex()
	admin := NewAdminService(
		repository.NewJSONLStore[model.Document](filepath.Join(dir, "documents.jsonl")),
		repository.NewJSONLStore[model.ApartmentEntry](filepath.Join(dir, "apartments.jsonl")),
		NewIndexer(newConstEmbedder(), index, "contact@example.org", nopLogger()),
		nopLogger(),
	)
	admin.now = func() time.Time { return time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC) }
	return &adminFixture{admin: admin, index: index}
}

func TestAdminService_DocumentLifecycle(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	doc, err := f.admin.CreateDocument(ctx, model.DocumentInput{
		Content:  strPtr("La résidence propose une laverie en libre-service."),
		URL:      strPtr("https://example.org/services"),
		Category: strPtr("services"),
	})
	require.NoError(t, err)
	assert.Len(t, doc.ID, 36)
	assert.Equal(t, "services", doc.Type)
	assert.Equal(t, "2025-09-01T10:00:00Z", doc.Timestamp)
	assert.Equal(t, 1, f.index.Len())

	updated, err := f.admin.UpdateDocument(ctx, doc.ID, model.DocumentInput{Category: strPtr("faq")})
	require.NoError(t, err)
	assert.Equal(t, "faq", updated.Type)
	assert.Equal(t, doc.Content, updated.Content)
	assert.Equal(t, 1, f.index.Len())

	found, err := f.admin.SearchDocuments("LAVERIE")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = f.admin.SearchDocuments("faq")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	require.NoError(t, f.admin.DeleteDocument(ctx, doc.ID))
	assert.Equal(t, 0, f.index.Len())

	err = f.admin.DeleteDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAdminService_DocumentValidation(t *testing.T) {
	f := newAdminFixture(t)

	_, err := f.admin.CreateDocument(context.Background(), model.DocumentInput{Content: strPtr("trop court")})
	assert.NoError(t, err)

	_, err = f.admin.CreateDocument(context.Background(), model.DocumentInput{Content: strPtr("court")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.admin.CreateDocument(context.Background(), model.DocumentInput{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.admin.UpdateDocument(context.Background(), "missing", model.DocumentInput{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAdminService_ApartmentLifecycle(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	apt, err := f.admin.CreateApartment(ctx, model.ApartmentInput{
		City:      strPtr("Noisy-le-Grand"),
		Rooms:     intPtr(2),
		RentCCEur: floatPtr(720),
		SurfaceM2: floatPtr(40),
		Furnished: boolPtr(true),
	})
	require.NoError(t, err)
	assert.Regexp(t, `^NOISY-LE-GRAND_T2_[0-9a-f]{8}$`, apt.ID)
	assert.Equal(t, "N/A", apt.Metadata["energy_label"])
	assert.Equal(t, "", apt.Metadata["postal_code"])

	_, err = f.admin.UpdateApartment(ctx, apt.ID, model.ApartmentInput{RentCCEur: floatPtr(690)})
	require.NoError(t, err)

	hits, err := f.index.Search(ctx, []float32{1, 0}, model.Filter{}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 690.0, hits[0].Payload.Float("rent_cc_eur", 0))
	assert.Equal(t, apt.ID, hits[0].Payload.String("apartment_id", ""))

	_, err = f.admin.UpdateApartment(ctx, apt.ID, model.ApartmentInput{SurfaceM2: floatPtr(0)})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, f.admin.DeleteApartment(ctx, apt.ID))
	assert.Equal(t, 0, f.index.Len())
}

func TestAdminService_ApartmentValidation(t *testing.T) {
	f := newAdminFixture(t)

	tests := []struct {
		name string
		in   model.ApartmentInput
	}{
		{name: "missing city", in: model.ApartmentInput{Rooms: intPtr(1), RentCCEur: floatPtr(500), SurfaceM2: floatPtr(20)}},
		{name: "missing rooms", in: model.ApartmentInput{City: strPtr("Lille"), RentCCEur: floatPtr(500), SurfaceM2: floatPtr(20)}},
		{name: "zero rent", in: model.ApartmentInput{City: strPtr("Lille"), Rooms: intPtr(1), RentCCEur: floatPtr(0), SurfaceM2: floatPtr(20)}},
		{name: "negative surface", in: model.ApartmentInput{City: strPtr("Lille"), Rooms: intPtr(1), RentCCEur: floatPtr(500), SurfaceM2: floatPtr(-3)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.admin.CreateApartment(context.Background(), tt.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestAdminService_SearchApartments(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	for _, in := range []model.ApartmentInput{
		{City: strPtr("Lille"), Rooms: intPtr(1), RentCCEur: floatPtr(480), SurfaceM2: floatPtr(18)},
		{City: strPtr("Lille"), Rooms: intPtr(2), RentCCEur: floatPtr(690), SurfaceM2: floatPtr(41)},
		{City: strPtr("Bordeaux"), Rooms: intPtr(1), RentCCEur: floatPtr(520), SurfaceM2: floatPtr(22)},
	} {
		_, err := f.admin.CreateApartment(ctx, in)
		require.NoError(t, err)
	}

	found, err := f.admin.SearchApartments(ApartmentQuery{City: "lille"})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = f.admin.SearchApartments(ApartmentQuery{Rooms: intPtr(1), MaxPrice: floatPtr(500)})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Lille", found[0].Metadata.String("city", ""))

	found, err = f.admin.SearchApartments(ApartmentQuery{MinPrice: floatPtr(500)})
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestAdminService_ImportAndStatus(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	entries := []model.ApartmentEntry{
		{ID: "LILLE_T1_1", Metadata: model.JSONMap{"city": "Lille", "rooms": 1, "rent_cc_eur": 480.0, "surface_m2": 18.0, "furnished": true}},
		{ID: "LILLE_T2_2", Metadata: model.JSONMap{"city": "Lille", "rooms": 2, "rent_cc_eur": 690.0, "surface_m2": 41.0, "furnished": false}},
	}

	n, err := f.admin.ImportApartments(entries)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, f.admin.Wait(waitCtx))

	status, err := f.admin.Status()
	require.NoError(t, err)
	assert.False(t, status.InProgress)
	assert.Equal(t, ActionImportApartments, status.LastAction)
	assert.Equal(t, "2025-09-01T10:00:00Z", status.LastUpdate)
	assert.Equal(t, 2, status.ApartmentsCount)
	assert.Equal(t, 0, status.DocumentsCount)
	assert.Equal(t, 2, f.index.Len())
}

func TestAdminService_ImportValidation(t *testing.T) {
	f := newAdminFixture(t)

	_, err := f.admin.ImportApartments([]model.ApartmentEntry{{ID: "", Metadata: model.JSONMap{}}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.admin.ImportApartments([]model.ApartmentEntry{{ID: "A", Metadata: model.JSONMap{"city": "Lille"}}})
	assert.ErrorIs(t, err, ErrValidation)

	count, err := f.admin.apartments.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAdminService_ReindexSingleFlight(t *testing.T) {
	f := newAdminFixture(t)

	f.admin.mu.Lock()
	f.admin.inProgress = true
	f.admin.mu.Unlock()

	assert.ErrorIs(t, f.admin.ReindexAll(), ErrReindexInProgress)

	f.admin.mu.Lock()
	f.admin.inProgress = false
	f.admin.mu.Unlock()

	require.NoError(t, f.admin.ReindexAll())
	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.admin.Wait(waitCtx))
}

func TestAdminService_DocumentRejectsListingCategory(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	_, err := f.admin.CreateDocument(ctx, model.DocumentInput{
		Content:  strPtr("Notre résidence propose une laverie."),
		Category: strPtr(model.CategoryListing),
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, f.index.Len())

	doc, err := f.admin.CreateDocument(ctx, model.DocumentInput{
		Content:  strPtr("Notre résidence propose une laverie."),
		Category: strPtr("services"),
	})
	require.NoError(t, err)

	_, err = f.admin.UpdateDocument(ctx, doc.ID, model.DocumentInput{Category: strPtr("Appartement")})
	assert.ErrorIs(t, err, ErrValidation)

	stored, err := f.admin.documents.Get(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "services", stored.Type)
}

func TestAdminService_ImportDropsRemovedListingsFromIndex(t *testing.T) {
	f := newAdminFixture(t)
	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	listing := func(id string) model.ApartmentEntry {
		return model.ApartmentEntry{ID: id, Metadata: model.JSONMap{"city": "Lille", "rooms": 1, "rent_cc_eur": 480.0, "surface_m2": 18.0, "furnished": true}}
	}

	_, err := f.admin.ImportApartments([]model.ApartmentEntry{listing("OLD_1"), listing("OLD_2")})
	require.NoError(t, err)
	require.NoError(t, f.admin.Wait(waitCtx))
	require.Equal(t, 2, f.index.Len())

	_, err = f.admin.ImportApartments([]model.ApartmentEntry{listing("OLD_2"), listing("NEW_1")})
	require.NoError(t, err)
	require.NoError(t, f.admin.Wait(waitCtx))

	count, err := f.admin.apartments.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, count, f.index.Len())

	_, err = f.admin.ImportApartments([]model.ApartmentEntry{listing("NEW_1")})
	require.NoError(t, err)
	require.NoError(t, f.admin.Wait(waitCtx))
	assert.Equal(t, 1, f.index.Len())
}

func TestAdminService_ImportWhileReindexingLeavesStoreUntouched(t *testing.T) {
	f := newAdminFixture(t)

	_, err := f.admin.CreateApartment(context.Background(), model.ApartmentInput{
		City: strPtr("Lille"), Rooms: intPtr(1), RentCCEur: floatPtr(480), SurfaceM2: floatPtr(18),
	})
	require.NoError(t, err)
	before, err := f.admin.apartments.List()
	require.NoError(t, err)

	f.admin.mu.Lock()
	f.admin.inProgress = true
	f.admin.mu.Unlock()

	_, err = f.admin.ImportApartments([]model.ApartmentEntry{
		{ID: "NEW_1", Metadata: model.JSONMap{"city": "Bordeaux", "rooms": 1, "rent_cc_eur": 450.0, "surface_m2": 19.0, "furnished": false}},
	})
	assert.ErrorIs(t, err, ErrReindexInProgress)

	after, err := f.admin.apartments.List()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

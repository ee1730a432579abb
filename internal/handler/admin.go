package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"studenthousing/internal/model"
	"studenthousing/internal/service"

	"github.com/gin-gonic/gin"
)

const maxImportBytes = 32 << 20

// AdminHandler handles the catalogue management API
type AdminHandler struct {
	adminService *service.AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// Status handles GET /api/v1/admin/status
func (h *AdminHandler) Status(c *gin.Context) {
	status, err := h.adminService.Status()
	if err != nil {
		respondError(c, "Failed to read status", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// ListDocuments handles GET /api/v1/admin/documents
func (h *AdminHandler) ListDocuments(c *gin.Context) {
	docs, err := h.adminService.ListDocuments()
	if err != nil {
		respondError(c, "Failed to list documents", err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// CreateDocument handles POST /api/v1/admin/documents
func (h *AdminHandler) CreateDocument(c *gin.Context) {
	var in model.DocumentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	doc, err := h.adminService.CreateDocument(c.Request.Context(), in)
	if err != nil {
		respondError(c, "Failed to create document", err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// UpdateDocument handles PUT /api/v1/admin/documents/:id
func (h *AdminHandler) UpdateDocument(c *gin.Context) {
	var in model.DocumentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	doc, err := h.adminService.UpdateDocument(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, "Failed to update document", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/v1/admin/documents/:id
func (h *AdminHandler) DeleteDocument(c *gin.Context) {
	if err := h.adminService.DeleteDocument(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "Failed to delete document", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": c.Param("id")})
}

// SearchDocuments handles GET /api/v1/admin/documents/search?q=
func (h *AdminHandler) SearchDocuments(c *gin.Context) {
	docs, err := h.adminService.SearchDocuments(c.Query("q"))
	if err != nil {
		respondError(c, "Failed to search documents", err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// ListApartments handles GET /api/v1/admin/apartments
func (h *AdminHandler) ListApartments(c *gin.Context) {
	entries, err := h.adminService.ListApartments()
	if err != nil {
		respondError(c, "Failed to list apartments", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// CreateApartment handles POST /api/v1/admin/apartments
func (h *AdminHandler) CreateApartment(c *gin.Context) {
	var in model.ApartmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	entry, err := h.adminService.CreateApartment(c.Request.Context(), in)
	if err != nil {
		respondError(c, "Failed to create apartment", err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// UpdateApartment handles PUT /api/v1/admin/apartments/:id
func (h *AdminHandler) UpdateApartment(c *gin.Context) {
	var in model.ApartmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	entry, err := h.adminService.UpdateApartment(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, "Failed to update apartment", err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// DeleteApartment handles DELETE /api/v1/admin/apartments/:id
func (h *AdminHandler) DeleteApartment(c *gin.Context) {
	if err := h.adminService.DeleteApartment(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, "Failed to delete apartment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": c.Param("id")})
}

// SearchApartments handles GET /api/v1/admin/apartments/search?city=&rooms=&min_rent=&max_rent=
func (h *AdminHandler) SearchApartments(c *gin.Context) {
	q := service.ApartmentQuery{City: c.Query("city")}

	var err error
	if q.Rooms, err = queryInt(c, "rooms"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.MinPrice, err = queryFloat(c, "min_rent", "min_price"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.MaxPrice, err = queryFloat(c, "max_rent", "max_price"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries, err := h.adminService.SearchApartments(q)
	if err != nil {
		respondError(c, "Failed to search apartments", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// ImportApartments handles POST /api/v1/admin/apartments/import.
// The body (or the multipart "file" field) is a JSON array or JSON lines of listing entries.
func (h *AdminHandler) ImportApartments(c *gin.Context) {
	body, err := importBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload: " + err.Error()})
		return
	}

	entries, err := decodeEntries(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload: " + err.Error()})
		return
	}

	n, err := h.adminService.ImportApartments(entries)
	if err != nil {
		respondError(c, "Import failed", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "imported": n})
}

// ReindexAll handles POST /api/v1/admin/reindex-all
func (h *AdminHandler) ReindexAll(c *gin.Context) {
	if err := h.adminService.ReindexAll(); err != nil {
		respondError(c, "Reindex not started", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "Reindex started"})
}

func importBody(c *gin.Context) ([]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, maxImportBytes))
	}
	return io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
}

// decodeEntries accepts a JSON array or a stream of JSON objects, one per line
func decodeEntries(body []byte) ([]model.ApartmentEntry, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty body")
	}

	if trimmed[0] == '[' {
		var entries []model.ApartmentEntry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}

	var entries []model.ApartmentEntry
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	for dec.More() {
		var e model.ApartmentEntry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("entry %d: %w", len(entries)+1, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func queryInt(c *gin.Context, key string) (*int, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return &v, nil
}

func queryFloat(c *gin.Context, keys ...string) (*float64, error) {
	for _, key := range keys {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %q", key, raw)
		}
		return &v, nil
	}
	return nil, nil
}

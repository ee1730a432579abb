package handler

import (
	"net/http"
	"strconv"
	"strings"

	"studenthousing/internal/model"
	"studenthousing/internal/service"

	"github.com/gin-gonic/gin"
)

// ChunkBatchRequest is a batch of crawled chunks to index
type ChunkBatchRequest struct {
	Chunks []model.Chunk `json:"chunks" binding:"required"`
}

// ChunkBatchResponse reports the outcome of a chunk batch
type ChunkBatchResponse struct {
	Indexed int      `json:"indexed"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// ChunkHandler indexes crawled content pushed by the ingest tooling
type ChunkHandler struct {
	indexer *service.Indexer
}

// NewChunkHandler creates a new chunk handler
func NewChunkHandler(indexer *service.Indexer) *ChunkHandler {
	return &ChunkHandler{
		indexer: indexer,
	}
}

// BatchIndex handles POST /api/v1/admin/chunks
func (h *ChunkHandler) BatchIndex(c *gin.Context) {
	var req ChunkBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if len(req.Chunks) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No chunks provided"})
		return
	}

	valid := make([]model.Chunk, 0, len(req.Chunks))
	var errs []string
	for i, chunk := range req.Chunks {
		switch {
		case strings.TrimSpace(chunk.Content) == "":
			errs = append(errs, "chunk "+strconv.Itoa(i)+": empty content")
		case chunk.Metadata.Hash == "":
			errs = append(errs, "chunk "+strconv.Itoa(i)+": missing metadata.hash")
		default:
			valid = append(valid, chunk)
		}
	}

	if len(valid) > 0 {
		if err := h.indexer.IndexChunks(c.Request.Context(), valid, nil); err != nil {
			respondError(c, "Indexing failed", err)
			return
		}
	}

	response := ChunkBatchResponse{
		Indexed: len(valid),
		Skipped: len(req.Chunks) - len(valid),
		Errors:  errs,
	}

	if len(errs) > 0 {
		c.JSON(http.StatusPartialContent, response)
	} else {
		c.JSON(http.StatusOK, response)
	}
}

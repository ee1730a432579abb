package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"studenthousing/internal/model"
	"studenthousing/internal/service"

	"github.com/gin-gonic/gin"
)

// maxHistoryTurns bounds the client-supplied conversation history
const maxHistoryTurns = 20

// SearchIDHeader carries the search id of raw-mode responses
const SearchIDHeader = "X-Search-ID"

// SearchHandler handles search-related HTTP requests
type SearchHandler struct {
	searchService *service.SearchService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searchService *service.SearchService) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
	}
}

// Search handles POST /api/v1/search
func (h *SearchHandler) Search(c *gin.Context) {
	req, ok := bindSearchRequest(c)
	if !ok {
		return
	}

	outcome, err := h.searchService.Query(c.Request.Context(), req)
	if err != nil {
		respondError(c, "Search failed", err)
		return
	}

	if !req.Summarize {
		c.Header(SearchIDHeader, outcome.SearchID)
		c.JSON(http.StatusOK, outcome.Records)
		return
	}

	c.JSON(http.StatusOK, outcome.Response)
}

// SearchStream handles POST /api/v1/search/stream - SSE streaming search
func (h *SearchHandler) SearchStream(c *gin.Context) {
	req, ok := bindSearchRequest(c)
	if !ok {
		return
	}

	// Create flusher for SSE
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	sendSSE(c, "start", map[string]any{"query": req.Query})
	flusher.Flush()

	outcome, err := h.searchService.QueryStream(c.Request.Context(), req, func(event string, data any) error {
		if err := c.Request.Context().Err(); err != nil {
			return err
		}
		sendSSE(c, event, data)
		flusher.Flush()
		return nil
	})
	if err != nil {
		sendSSE(c, "error", map[string]any{"error": err.Error(), "status": statusFor(err)})
		flusher.Flush()
		return
	}

	if req.Summarize {
		sendSSE(c, "results", outcome.Response)
	} else {
		sendSSE(c, "results", map[string]any{"search_id": outcome.SearchID, "results": outcome.Records})
	}
	flusher.Flush()

	sendSSE(c, "done", nil)
	flusher.Flush()
}

func bindSearchRequest(c *gin.Context) (*model.SearchRequest, bool) {
	var req model.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return nil, false
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: query is empty"})
		return nil, false
	}
	if len(req.ConversationHistory) > maxHistoryTurns {
		req.ConversationHistory = req.ConversationHistory[len(req.ConversationHistory)-maxHistoryTurns:]
	}
	return &req, true
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(jsonData))
	} else {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
	}
}

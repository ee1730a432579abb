package model

import "time"

// Conversation roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one message of the client-side conversation history
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SearchRequest represents a chat search request
type SearchRequest struct {
	Query               string             `json:"query" binding:"required"`
	Type                string             `json:"type,omitempty"` // optional category override
	Summarize           bool               `json:"summarize"`
	ConversationHistory []ConversationTurn `json:"conversation_history,omitempty"`
}

// QuickReply is a suggested answer rendered as a button
type QuickReply struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// SearchResponse represents the narrative response of a turn
type SearchResponse struct {
	Answer        string        `json:"answer"`
	Apartments    []ListingCard `json:"apartments"`
	QuickReplies  []QuickReply  `json:"quick_replies,omitempty"`
	HasApartments bool          `json:"has_apartments"`
	SearchID      string        `json:"search_id,omitempty"`
	Took          int64         `json:"took_ms"`
}

// SearchOutcome carries the result of one pipeline run in either mode
type SearchOutcome struct {
	SearchID string
	Intent   IntentAnalysis
	Records  []ResultRecord  // raw mode
	Response *SearchResponse // narrative mode
}

// SearchLog is the query log entry recorded for each turn
type SearchLog struct {
	SearchID        string
	Query           string
	IsListingSearch bool
	Criteria        SearchCriteria
	ResultCount     int
	ListingIDs      []string
	FallbackUsed    bool
	ResponseTime    time.Duration
}

// FeedbackRequest represents user feedback/action
type FeedbackRequest struct {
	SearchID  string `json:"search_id" binding:"required"`
	ListingID string `json:"listing_id" binding:"required"`
	Action    string `json:"action" binding:"required"` // click, contact, view_details
}

// FeedbackResponse represents feedback response
type FeedbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

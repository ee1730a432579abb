package service

import (
	"context"
	"fmt"
	"time"

	"studenthousing/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Feedback actions
const (
	ActionClick       = "click"
	ActionContact     = "contact"
	ActionViewDetails = "view_details"
)

// SearchLogger records the query log
type SearchLogger interface {
	LogSearch(ctx context.Context, entry model.SearchLog) error
	LogFeedback(ctx context.Context, searchID, listingID, action string) error
}

// SearchEventCallback is called for streaming search events
type SearchEventCallback func(event string, data any) error

// SearchService runs the query pipeline:
// extraction, filtered retrieval with fallback, assembly, policy, ranking and composition.
type SearchService struct {
	extractor *CriteriaExtractor
	retrieval *RetrievalEngine
	assembler *ResultAssembler
	policy    *ConversationPolicy
	ranker    *Ranker
	composer  *ResponseComposer
	searchLog SearchLogger
	logger    zerolog.Logger
}

// NewSearchService creates a new search service. A nil searchLog writes the query log to logger.
func NewSearchService(
	extractor *CriteriaExtractor,
	retrieval *RetrievalEngine,
	assembler *ResultAssembler,
	policy *ConversationPolicy,
	ranker *Ranker,
	composer *ResponseComposer,
	searchLog SearchLogger,
	logger zerolog.Logger,
) *SearchService {
	logger = logger.With().Str("component", "search").Logger()
	if searchLog == nil {
		searchLog = NewLogSearchLogger(logger)
	}
	return &SearchService{
		extractor: extractor,
		retrieval: retrieval,
		assembler: assembler,
		policy:    policy,
		ranker:    ranker,
		composer:  composer,
		searchLog: searchLog,
		logger:    logger,
	}
}

// Query runs one turn without streaming events
func (s *SearchService) Query(ctx context.Context, req *model.SearchRequest) (*model.SearchOutcome, error) {
	return s.QueryStream(ctx, req, nil)
}

// QueryStream runs one turn, reporting stage events to emit when non-nil.
// Raw mode fills Records; narrative mode fills Response.
func (s *SearchService) QueryStream(ctx context.Context, req *model.SearchRequest, emit SearchEventCallback) (*model.SearchOutcome, error) {
	startTime := time.Now()
	if emit == nil {
		emit = func(string, any) error { return nil }
	}

	outcome := &model.SearchOutcome{SearchID: uuid.NewString()}

	intent := s.extractor.Extract(ctx, req.Query, req.ConversationHistory)
	outcome.Intent = intent
	if err := emit("intent", intent); err != nil {
		return nil, err
	}

	if err := emit("searching", map[string]any{"status": "Recherche en cours..."}); err != nil {
		return nil, err
	}

	retrieval, err := s.retrieval.Retrieve(ctx, req.Query, intent, req.Type)
	if err != nil {
		s.logger.Error().Err(err).Str("search_id", outcome.SearchID).Msg("retrieval failed")
		return nil, err
	}
	if retrieval.Widened {
		if err := emit("fallback", map[string]any{
			"hits":            len(retrieval.Hits),
			"widened_ceiling": retrieval.WidenedCeiling,
		}); err != nil {
			return nil, err
		}
	}

	assembly := s.assembler.Assemble(retrieval, intent)

	if !req.Summarize {
		outcome.Records = assembly.Records
		s.record(ctx, req, outcome, assembly, retrieval, nil, time.Since(startTime))
		return outcome, nil
	}

	decision := s.policy.Decide(assembly, intent, req.Query, req.ConversationHistory)
	if len(decision.Listings) > 0 && s.ranker != nil {
		decision.Listings = s.ranker.Rank(decision.Listings, intent.Criteria)
	}
	if err := emit("policy", map[string]any{
		"outcome":  decision.Outcome,
		"register": decision.Register,
		"cities":   assembly.Cities,
	}); err != nil {
		return nil, err
	}

	resp, err := s.composer.Compose(ctx, req.Query, req.ConversationHistory, intent, assembly, decision)
	if err != nil {
		s.logger.Error().Err(err).Str("search_id", outcome.SearchID).Msg("narrative generation failed")
		return nil, err
	}

	took := time.Since(startTime)
	resp.SearchID = outcome.SearchID
	resp.Took = took.Milliseconds()
	outcome.Response = resp

	s.record(ctx, req, outcome, assembly, retrieval, resp, took)
	return outcome, nil
}

// LogFeedback logs user feedback/action on a listing of a previous turn
func (s *SearchService) LogFeedback(ctx context.Context, req *model.FeedbackRequest) error {
	switch req.Action {
	case ActionClick, ActionContact, ActionViewDetails:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrValidation, req.Action)
	}
	return s.searchLog.LogFeedback(ctx, req.SearchID, req.ListingID, req.Action)
}

// record writes the query log entry; failures are logged and never surfaced
func (s *SearchService) record(
	ctx context.Context,
	req *model.SearchRequest,
	outcome *model.SearchOutcome,
	assembly *Assembly,
	retrieval *Retrieval,
	resp *model.SearchResponse,
	took time.Duration,
) {
	entry := model.SearchLog{
		SearchID:        outcome.SearchID,
		Query:           req.Query,
		IsListingSearch: outcome.Intent.IsListingSearch,
		Criteria:        outcome.Intent.Criteria,
		ResultCount:     len(assembly.Records),
		ListingIDs:      []string{},
		FallbackUsed:    retrieval.Widened,
		ResponseTime:    took,
	}
	cards := assembly.Listings
	if resp != nil {
		cards = resp.Apartments
	}
	for _, c := range cards {
		entry.ListingIDs = append(entry.ListingIDs, c.ID)
	}

	if err := s.searchLog.LogSearch(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("search_id", outcome.SearchID).Msg("failed to record search")
	}
}

// LogSearchLogger writes the query log as structured log lines
type LogSearchLogger struct {
	logger zerolog.Logger
}

// NewLogSearchLogger creates a query log backed by logger
func NewLogSearchLogger(logger zerolog.Logger) *LogSearchLogger {
	return &LogSearchLogger{logger: logger}
}

// LogSearch implements SearchLogger
func (l *LogSearchLogger) LogSearch(_ context.Context, e model.SearchLog) error {
	l.logger.Info().
		Str("search_id", e.SearchID).
		Str("query", e.Query).
		Bool("is_listing_search", e.IsListingSearch).
		Interface("criteria", e.Criteria).
		Int("result_count", e.ResultCount).
		Strs("listing_ids", e.ListingIDs).
		Bool("fallback_used", e.FallbackUsed).
		Dur("took", e.ResponseTime).
		Msg("search")
	return nil
}

// LogFeedback implements SearchLogger
func (l *LogSearchLogger) LogFeedback(_ context.Context, searchID, listingID, action string) error {
	l.logger.Info().
		Str("search_id", searchID).
		Str("listing_id", listingID).
		Str("action", action).
		Msg("feedback")
	return nil
}

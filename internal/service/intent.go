package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"studenthousing/internal/model"
	"studenthousing/internal/utils"

	"github.com/rs/zerolog"
)

const (
	extractorHistoryTurns = 6
	extractorMaxTokens    = 300
	maxRooms              = 10
	maxRequestedResults   = 50
)

const extractorPromptTemplate = `Tu es un agent d'analyse de requêtes pour une plateforme de logement étudiant.

Ta mission : analyser TOUTE LA CONVERSATION (pas seulement la dernière question) et déterminer :
1. S'il s'agit d'une recherche de logement EXPLICITE (true/false)
2. Si oui, extraire TOUS les critères mentionnés dans la conversation

RÈGLES :
- is_listing_search=true UNIQUEMENT si l'utilisateur cherche un logement, appartement, studio, chambre ou toit
- is_listing_search=false pour les questions sur les services, forfaits, la marque, les activités, les équipements
- Tenir compte de l'historique : une ville, un budget ou une typologie cités plus tôt restent valables
- Un nombre seul ("800", "1000") est un budget maximum
- Typologies : Studio=1, T1=1, T2=2, T3=3, T4=4, Colocation=0
- "Tous" pour les typologies : rooms=null
- Une zone se renseigne telle quelle dans city, le système gère les villes multiples :
%s
EXEMPLES :
"quels sont les services proposés ?" → is_listing_search: false
"j'ai besoin d'un toit à moins de 500 euros à paris" → is_listing_search: true, max_budget: 500, city: "Paris"
Historique "Archamps", puis "t1 et 600€" → is_listing_search: true, rooms: 1, max_budget: 600, city: "Archamps"

Réponds UNIQUEMENT en JSON valide (pas de markdown) :
{
  "is_listing_search": true/false,
  "criteria": {
    "max_budget": null ou nombre,
    "min_budget": null ou nombre,
    "city": null ou "Paris"/"Lille"/etc,
    "furnished": null ou true/false,
    "min_surface": null ou nombre,
    "max_surface": null ou nombre,
    "rooms": null ou entier (0=colocation, 1=studio/T1),
    "max_results": null ou entier (nombre de logements demandés)
  },
  "reasoning": "Courte explication de ton analyse"
}`

// intentPayload mirrors the JSON schema requested from the oracle.
// Numeric fields are decoded as floats so that integrality can be checked explicitly.
type intentPayload struct {
	IsListingSearch   *bool            `json:"is_listing_search"`
	IsApartmentSearch *bool            `json:"is_apartment_search"`
	Criteria          *criteriaPayload `json:"criteria"`
	Reasoning         string           `json:"reasoning"`
}

type criteriaPayload struct {
	MaxBudget  *float64 `json:"max_budget"`
	MinBudget  *float64 `json:"min_budget"`
	City       *string  `json:"city"`
	Furnished  *bool    `json:"furnished"`
	MinSurface *float64 `json:"min_surface"`
	MaxSurface *float64 `json:"max_surface"`
	Rooms      *float64 `json:"rooms"`
	MaxResults *float64 `json:"max_results"`
}

// CriteriaExtractor turns an utterance and its conversation history into an IntentAnalysis
type CriteriaExtractor struct {
	oracle LanguageOracle
	zones  *ZoneMap
	logger zerolog.Logger
}

// NewCriteriaExtractor creates a new extractor; a nil oracle makes every turn informational
func NewCriteriaExtractor(oracle LanguageOracle, zones *ZoneMap, logger zerolog.Logger) *CriteriaExtractor {
	return &CriteriaExtractor{
		oracle: oracle,
		zones:  zones,
		logger: logger.With().Str("component", "extractor").Logger(),
	}
}

// Extract never fails: any oracle, parse or validation problem yields a non-listing intent
// whose reasoning carries the failure reason.
func (e *CriteriaExtractor) Extract(ctx context.Context, utterance string, history []model.ConversationTurn) model.IntentAnalysis {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return fallbackIntent("empty utterance")
	}
	if e.oracle == nil {
		return fallbackIntent("language oracle not configured")
	}

	raw, err := e.oracle.Complete(ctx, e.buildMessages(utterance, history), 0, extractorMaxTokens)
	if err != nil {
		e.logger.Warn().Err(err).Msg("intent oracle call failed")
		return fallbackIntent(fmt.Sprintf("oracle error: %v", err))
	}

	intent, err := parseIntent(raw)
	if err != nil {
		e.logger.Warn().Err(err).Str("raw", truncate(raw, 200)).Msg("intent rejected")
		return fallbackIntent(fmt.Sprintf("invalid oracle output: %v", err))
	}

	e.logger.Debug().
		Bool("is_listing_search", intent.IsListingSearch).
		Str("city", intent.Criteria.CityName()).
		Str("reasoning", intent.Reasoning).
		Msg("intent extracted")

	return intent
}

func (e *CriteriaExtractor) buildMessages(utterance string, history []model.ConversationTurn) []ChatMessage {
	hints := ""
	if e.zones != nil {
		hints = e.zones.PromptHints()
	}

	messages := []ChatMessage{{Role: RoleSystem, Content: fmt.Sprintf(extractorPromptTemplate, hints)}}
	for _, turn := range lastTurns(history, extractorHistoryTurns) {
		role := RoleUser
		if turn.Role == model.RoleAssistant {
			role = RoleAssistant
		}
		messages = append(messages, ChatMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, ChatMessage{Role: RoleUser, Content: "Question actuelle : " + utterance})
	return messages
}

// parseIntent decodes and validates the oracle output
func parseIntent(raw string) (model.IntentAnalysis, error) {
	var p intentPayload
	if err := utils.ParseOracleJSON(raw, &p); err != nil {
		return model.IntentAnalysis{}, err
	}

	flag := p.IsListingSearch
	if flag == nil {
		flag = p.IsApartmentSearch
	}
	if flag == nil {
		return model.IntentAnalysis{}, errors.New("missing is_listing_search")
	}
	if p.Criteria == nil {
		return model.IntentAnalysis{}, errors.New("missing criteria")
	}

	criteria, err := p.Criteria.toCriteria()
	if err != nil {
		return model.IntentAnalysis{}, err
	}

	return model.IntentAnalysis{
		IsListingSearch: *flag,
		Criteria:        criteria,
		Reasoning:       p.Reasoning,
	}, nil
}

func (c criteriaPayload) toCriteria() (model.SearchCriteria, error) {
	out := model.SearchCriteria{
		MaxBudget:  c.MaxBudget,
		MinBudget:  c.MinBudget,
		Furnished:  c.Furnished,
		MinSurface: c.MinSurface,
		MaxSurface: c.MaxSurface,
	}

	if c.City != nil {
		if city := strings.TrimSpace(*c.City); city != "" {
			out.City = &city
		}
	}

	if err := checkRange("budget", c.MinBudget, c.MaxBudget); err != nil {
		return model.SearchCriteria{}, err
	}
	if err := checkRange("surface", c.MinSurface, c.MaxSurface); err != nil {
		return model.SearchCriteria{}, err
	}

	rooms, err := integral("rooms", c.Rooms, 0, maxRooms)
	if err != nil {
		return model.SearchCriteria{}, err
	}
	out.Rooms = rooms

	maxResults, err := integral("max_results", c.MaxResults, 1, maxRequestedResults)
	if err != nil {
		return model.SearchCriteria{}, err
	}
	out.MaxResults = maxResults

	return out, nil
}

func checkRange(name string, min, max *float64) error {
	if min != nil && *min < 0 {
		return fmt.Errorf("min_%s must not be negative", name)
	}
	if max != nil && *max < 0 {
		return fmt.Errorf("max_%s must not be negative", name)
	}
	if min != nil && max != nil && *min > *max {
		return fmt.Errorf("min_%s (%g) cannot be greater than max_%s (%g)", name, *min, name, *max)
	}
	return nil
}

func integral(name string, v *float64, lo, hi int) (*int, error) {
	if v == nil {
		return nil, nil
	}
	if *v != math.Trunc(*v) {
		return nil, fmt.Errorf("%s must be an integer", name)
	}
	n := int(*v)
	if n < lo || n > hi {
		return nil, fmt.Errorf("%s must be between %d and %d", name, lo, hi)
	}
	return &n, nil
}

func fallbackIntent(reason string) model.IntentAnalysis {
	return model.IntentAnalysis{
		IsListingSearch: false,
		Criteria:        model.SearchCriteria{},
		Reasoning:       reason,
	}
}

func lastTurns(history []model.ConversationTurn, n int) []model.ConversationTurn {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

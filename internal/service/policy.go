package service

import (
	"strings"

	"studenthousing/internal/model"
	"studenthousing/internal/utils"
)

// Outcome is the conversational state reached by a turn
type Outcome string

const (
	OutcomeNoListings            Outcome = "no_listings"
	OutcomeMultiCityAmbiguous    Outcome = "multi_city_ambiguous"
	OutcomeSingleCityOrSpecified Outcome = "single_city_or_specified"
)

// Register selects the tone of the narrative
type Register string

const (
	RegisterPropose Register = "propose" // offer help
	RegisterRefine  Register = "refine"  // help accepted, narrow the search down
	RegisterDisplay Register = "display" // help accepted and listings requested
)

// FlexibleReplyID is the id of the quick reply meaning "any city"
const FlexibleReplyID = "flexible"

const (
	acceptanceWindow = 3
	wantsWindow      = 2
)

// SignalDetector mines conversational signals from recent user turns
type SignalDetector interface {
	AcceptedHelp(turns []model.ConversationTurn) bool
	WantsListings(turns []model.ConversationTurn) bool
	Flexible(utterance string) bool
}

// KeywordSignals detects signals by keyword presence; false positives are accepted
type KeywordSignals struct {
	Acceptance []string
	Wants      []string
	Flexibles  []string
}

// DefaultKeywordSignals returns the built-in French/English keyword lists
func DefaultKeywordSignals() *KeywordSignals {
	return &KeywordSignals{
		Acceptance: []string{"oui", "yes", "d'accord", "ok", "parfait", "montre", "montrez", "voir", "montre-moi", "montrez-moi"},
		Wants:      []string{"montre", "montrez", "voir", "appartements", "logements", "disponibles", "proche", "budget"},
		Flexibles:  []string{"flexible"},
	}
}

// AcceptedHelp implements SignalDetector
func (k *KeywordSignals) AcceptedHelp(turns []model.ConversationTurn) bool {
	return containsAny(userContents(turns, acceptanceWindow), k.Acceptance)
}

// WantsListings implements SignalDetector
func (k *KeywordSignals) WantsListings(turns []model.ConversationTurn) bool {
	return containsAny(userContents(turns, wantsWindow), k.Wants)
}

// Flexible implements SignalDetector
func (k *KeywordSignals) Flexible(utterance string) bool {
	return containsAny([]string{strings.ToLower(utterance)}, k.Flexibles)
}

func userContents(turns []model.ConversationTurn, window int) []string {
	var out []string
	for _, t := range lastTurns(userTurns(turns), window) {
		out = append(out, strings.ToLower(t.Content))
	}
	return out
}

func userTurns(turns []model.ConversationTurn) []model.ConversationTurn {
	out := make([]model.ConversationTurn, 0, len(turns))
	for _, t := range turns {
		if t.Role != model.RoleAssistant {
			out = append(out, t)
		}
	}
	return out
}

func containsAny(texts, keywords []string) bool {
	for _, text := range texts {
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				return true
			}
		}
	}
	return false
}

// Decision is the policy verdict for a turn
type Decision struct {
	Outcome      Outcome
	Register     Register
	QuickReplies []model.QuickReply
	Listings     []model.ListingCard // listings to present, empty when withheld
}

// ConversationPolicy decides between disambiguation, direct presentation and
// informational answers
type ConversationPolicy struct {
	zones   *ZoneMap
	signals SignalDetector
}

// NewConversationPolicy creates a new policy; a nil detector uses keyword signals
func NewConversationPolicy(zones *ZoneMap, signals SignalDetector) *ConversationPolicy {
	if signals == nil {
		signals = DefaultKeywordSignals()
	}
	return &ConversationPolicy{zones: zones, signals: signals}
}

// Decide evaluates the turn. The current utterance counts as the most recent user turn.
func (p *ConversationPolicy) Decide(a *Assembly, intent model.IntentAnalysis, utterance string, history []model.ConversationTurn) Decision {
	turns := make([]model.ConversationTurn, 0, len(history)+1)
	turns = append(turns, history...)
	turns = append(turns, model.ConversationTurn{Role: model.RoleUser, Content: utterance})

	d := Decision{
		Register:     p.register(turns),
		QuickReplies: []model.QuickReply{},
		Listings:     []model.ListingCard{},
	}

	switch {
	case !a.HasListings():
		d.Outcome = OutcomeNoListings
	case len(a.Cities) > 1 && intent.Criteria.CityName() == "":
		d.Outcome = OutcomeMultiCityAmbiguous
		if p.signals.Flexible(utterance) {
			d.QuickReplies = p.zoneReplies()
		} else {
			d.QuickReplies = cityReplies(a.Cities)
		}
	default:
		d.Outcome = OutcomeSingleCityOrSpecified
		d.Listings = a.Listings
	}

	return d
}

func (p *ConversationPolicy) register(turns []model.ConversationTurn) Register {
	accepted := p.signals.AcceptedHelp(turns)
	switch {
	case accepted && p.signals.WantsListings(turns):
		return RegisterDisplay
	case accepted:
		return RegisterRefine
	default:
		return RegisterPropose
	}
}

func (p *ConversationPolicy) zoneReplies() []model.QuickReply {
	zones := p.zones.Zones()
	replies := make([]model.QuickReply, 0, len(zones))
	for _, z := range zones {
		id := z.ID
		if id == "" {
			id = strings.ReplaceAll(utils.FoldPlace(z.Name), " ", "_")
		}
		replies = append(replies, model.QuickReply{ID: id, Label: z.Name, Value: z.Name})
	}
	return replies
}

// cityReplies expects sorted cities
func cityReplies(cities []string) []model.QuickReply {
	replies := make([]model.QuickReply, 0, len(cities)+1)
	for _, city := range cities {
		replies = append(replies, model.QuickReply{ID: utils.QuickReplyID(city), Label: city, Value: city})
	}
	return append(replies, model.QuickReply{ID: FlexibleReplyID, Label: "Je suis flexible", Value: "flexible"})
}

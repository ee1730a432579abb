package service

import (
	"context"
	"fmt"
	"strings"

	"studenthousing/internal/model"

	"github.com/rs/zerolog"
)

const (
	composerHistoryTurns   = 4
	composerTemperature    = 0.7
	listingMaxTokens       = 150
	informationalMaxTokens = 400
	excerptLength          = 200
)

const listingSystemPrompt = `Tu es conseillère en logement pour une plateforme de résidences étudiantes. Tu accompagnes les étudiants et jeunes actifs.

TON RÔLE :
- Accompagner le client comme un vrai commercial : chaleureux, proactif, orienté solution
- Proposer UNIQUEMENT nos typologies de logement, jamais la concurrence
- Guider vers la réservation en montrant les typologies

TYPOLOGIES :
Une typologie est un modèle de logement représentatif d'une résidence (Studio 18 m², T1 25 m², T2 40 m²...).
Le prix de base est affiché sur chaque carte, inutile de le redemander.

RÈGLES :
- Ne jamais citer de concurrents
- Ne jamais dire "je ne peux pas vous aider"
- Ne jamais dire "X appartements", dire "les typologies disponibles"
- Toujours proposer une alternative et terminer par une question de relance
- Être concis (2-3 phrases maximum)`

const informationalSystemPrompt = `Tu es conseillère en logement pour une plateforme de résidences étudiantes.

TON RÔLE :
- Répondre aux questions sur nos services, résidences et offres
- Être concis et informatif
- Orienter vers la recherche de logement quand c'est pertinent

RÈGLES :
- Ne jamais citer de concurrents
- Utiliser UNIQUEMENT les informations fournies
- Toujours proposer d'aider à trouver un logement à la fin`

var listingInstructions = map[Register]string{
	RegisterDisplay: `CONSIGNES (AFFICHAGE) :
1. Annonce que tu montres les logements (1 phrase)
2. Prépare le client : "Voici les logements qui correspondent le mieux à votre recherche"
3. Termine par une question pour la suite, par exemple "Quel logement vous intéresse le plus ?"`,
	RegisterRefine: `CONSIGNES (AFFINAGE) :
1. Présente les résultats de manière engageante (2-3 phrases)
2. Souligne le meilleur rapport qualité/prix
3. Termine par une question PRÉCISE pour affiner : ville, typologie, prix maximum ou meublé`,
	RegisterPropose: `CONSIGNES (PROPOSITION) :
1. Présente les résultats de manière engageante (2-3 phrases)
2. Souligne le meilleur rapport qualité/prix
3. Termine par une proposition d'aide : "Puis-je vous aider à trouver un logement qui correspond à vos critères et à votre budget ?"`,
}

const disambiguationInstructions = `CONSIGNES (CHOIX DE LA VILLE) :
1. Indique en une phrase que nous avons des résidences dans plusieurs villes : %s
2. Cite le prix d'entrée le plus bas
3. Termine en demandant quelle ville l'intéresse (des boutons de réponse seront affichés)`

// ResponseComposer turns a policy decision into the narrative payload
type ResponseComposer struct {
	oracle LanguageOracle
	logger zerolog.Logger
}

// NewResponseComposer creates a new response composer
func NewResponseComposer(oracle LanguageOracle, logger zerolog.Logger) *ResponseComposer {
	return &ResponseComposer{
		oracle: oracle,
		logger: logger.With().Str("component", "composer").Logger(),
	}
}

// Compose generates the narrative for the decision and packages the response.
// Oracle failures are returned wrapped in ErrNarrativeGeneration.
func (c *ResponseComposer) Compose(
	ctx context.Context,
	utterance string,
	history []model.ConversationTurn,
	intent model.IntentAnalysis,
	a *Assembly,
	d Decision,
) (*model.SearchResponse, error) {
	var (
		system    string
		prompt    string
		maxTokens int
	)

	convo := conversationContext(history)

	switch d.Outcome {
	case OutcomeNoListings:
		system = informationalSystemPrompt
		prompt = informationalPrompt(convo, utterance, a.Informational, d.Register)
		maxTokens = informationalMaxTokens
	case OutcomeMultiCityAmbiguous:
		system = listingSystemPrompt
		prompt = fmt.Sprintf("%sQuestion actuelle : %s\n\n%s\n\n%s\n\nRéponds :",
			convo, utterance, resultsSummary(a, intent),
			fmt.Sprintf(disambiguationInstructions, strings.Join(a.Cities, ", ")))
		maxTokens = listingMaxTokens
	default:
		system = listingSystemPrompt
		prompt = fmt.Sprintf("%sQuestion actuelle : %s\n\n%s\n\n%s\n\nRéponds :",
			convo, utterance, resultsSummary(a, intent), listingInstructions[d.Register])
		maxTokens = listingMaxTokens
	}

	if c.oracle == nil {
		return nil, fmt.Errorf("%w: language oracle not configured", ErrNarrativeGeneration)
	}

	answer, err := c.oracle.Complete(ctx, []ChatMessage{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: prompt},
	}, composerTemperature, maxTokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNarrativeGeneration, err)
	}

	listings := d.Listings
	if n := intent.Criteria.MaxResults; n != nil && *n > 0 && len(listings) > *n {
		listings = listings[:*n]
	}

	c.logger.Debug().
		Str("outcome", string(d.Outcome)).
		Str("register", string(d.Register)).
		Int("cards", len(listings)).
		Msg("response composed")

	return &model.SearchResponse{
		Answer:        strings.TrimSpace(answer),
		Apartments:    listings,
		QuickReplies:  d.QuickReplies,
		HasApartments: len(listings) > 0,
	}, nil
}

func conversationContext(history []model.ConversationTurn) string {
	turns := lastTurns(history, composerHistoryTurns)
	if len(turns) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Historique de la conversation :\n")
	for _, t := range turns {
		role := "Client"
		if t.Role == model.RoleAssistant {
			role = "Vous"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, t.Content)
	}
	b.WriteString("\n")
	return b.String()
}

func resultsSummary(a *Assembly, intent model.IntentAnalysis) string {
	var b strings.Builder
	b.WriteString("RÉSULTATS TROUVÉS :\n")
	fmt.Fprintf(&b, "- %d typologies disponibles\n", len(a.Listings))
	fmt.Fprintf(&b, "- Villes : %s\n", strings.Join(a.Cities, ", "))
	fmt.Fprintf(&b, "- Prix : de %.0f€ à %.0f€\n", a.MinRent, a.MaxRent)
	if intent.Criteria.MaxBudget != nil || intent.Criteria.MinBudget != nil {
		fmt.Fprintf(&b, "- Dans le budget : %d\n", len(a.InBudget))
	}
	if a.Widened {
		b.WriteString("- Aucun résultat exact : recherche élargie aux autres villes et à un budget plus large\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func informationalPrompt(convo, utterance string, records []model.ResultRecord, r Register) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%sQuestion : %s\n\nInformations disponibles :\n", convo, utterance)
	for _, rec := range records {
		fmt.Fprintf(&b, "- %s\n", truncateRunes(rec.Content, excerptLength))
	}
	b.WriteString("\nRéponds de manière claire et structurée (2-3 paragraphes maximum).\n")
	if r == RegisterPropose {
		b.WriteString(`Termine par une proposition d'aide : "Puis-je vous aider à trouver un logement ?"`)
	} else {
		b.WriteString(`Termine par une question pour affiner sa recherche : "Quelle ville vous intéresse ? Quel est votre budget maximum ?"`)
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

package crawler

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"studenthousing/internal/model"
	"studenthousing/internal/service"

	"github.com/rs/zerolog"
)

// Chunk categories
const (
	CategoryResidence  = "residence"
	CategoryFAQ        = "faq"
	CategoryReglement  = "reglement"
	CategoryContact    = "contact"
	CategoryServices   = "services"
	CategoryOther      = service.DefaultChunkCategory
	classifierMaxInput = 1000
)

// Categories lists the labels a chunk may receive
var Categories = []string{CategoryResidence, CategoryFAQ, CategoryReglement, CategoryContact, CategoryServices, CategoryOther}

const classifierSystemPrompt = "Tu es un classifieur de contenu. Tu dois attribuer un 'type' parmi : residence, faq, reglement, contact, services, autres."

const classifierPromptTemplate = `Voici un extrait de contenu d'un site web. Dis simplement à quelle catégorie il correspond parmi les suivantes :
- residence (description d'une résidence, adresse, photos, chambres…)
- faq (questions fréquentes)
- reglement (règles, conditions d'admission, RGPD…)
- contact (informations de contact, accès, horaires)
- services (wifi, laverie, petit dej…)
- autres (si rien ne colle)

Réponds avec le seul nom de la catégorie.

Contenu : '''%s'''`

// Classifier labels crawled chunks through the language oracle
type Classifier struct {
	oracle service.LanguageOracle
	logger zerolog.Logger
}

// NewClassifier creates a new chunk classifier
func NewClassifier(oracle service.LanguageOracle, logger zerolog.Logger) *Classifier {
	return &Classifier{
		oracle: oracle,
		logger: logger.With().Str("component", "classifier").Logger(),
	}
}

// Classify returns the category of text; any failure yields "autres"
func (c *Classifier) Classify(ctx context.Context, text string) string {
	if c.oracle == nil {
		return CategoryOther
	}

	runes := []rune(text)
	if len(runes) > classifierMaxInput {
		runes = runes[:classifierMaxInput]
	}

	answer, err := c.oracle.Complete(ctx, []service.ChatMessage{
		{Role: service.RoleSystem, Content: classifierSystemPrompt},
		{Role: service.RoleUser, Content: fmt.Sprintf(classifierPromptTemplate, string(runes))},
	}, 0, 10)
	if err != nil {
		c.logger.Warn().Err(err).Msg("classification failed")
		return CategoryOther
	}

	return normalizeCategory(answer)
}

// ClassifyAll sets the category of every chunk and returns the labelled copies
func (c *Classifier) ClassifyAll(ctx context.Context, chunks []model.Chunk, progress func(done, total int)) []model.Chunk {
	out := make([]model.Chunk, len(chunks))
	for i, chunk := range chunks {
		chunk.Metadata.Type = c.Classify(ctx, chunk.Content)
		out[i] = chunk
		if progress != nil {
			progress(i+1, len(chunks))
		}
	}
	return out
}

func normalizeCategory(answer string) string {
	label := strings.ToLower(strings.TrimFunc(answer, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}))
	label = strings.ReplaceAll(label, "è", "e")

	for _, cat := range Categories {
		if label == cat {
			return cat
		}
	}
	for _, cat := range Categories {
		if strings.Contains(label, cat) {
			return cat
		}
	}
	return CategoryOther
}

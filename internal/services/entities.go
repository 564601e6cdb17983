package services

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"resume-analyzer/internal/models"
)

var (
	emailPattern    = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phonePattern    = regexp.MustCompile(`(\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	linkedinPattern = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?linkedin\.com/in/[A-Za-z0-9-]+/?`)

	whitespacePattern = regexp.MustCompile(`\s+`)
	symbolPattern     = regexp.MustCompile(`[^\w\s\-.@()+/#]`)
	wordBoundary      = func(skill string) *regexp.Regexp {
		return regexp.MustCompile(`(?i)(^|[^\w#+])` + regexp.QuoteMeta(skill) + `($|[^\w#+])`)
	}
)

// EntityResult carries the extracted entities plus how they were obtained.
// Degraded means the rule-based fallback ran instead of the model.
type EntityResult struct {
	Entities []models.Entity
	Contact  models.ContactInfo
	Degraded bool
}

// EntityService extracts typed entities from resume text. It never fails
// hard: when both the model and the fallback come up empty the result is
// an empty, degraded set.
type EntityService interface {
	Extract(ctx context.Context, text *models.ExtractedText) *EntityResult
}

type entityService struct {
	ner       NERClient
	chunker   TextChunker
	threshold float64
	maxChars  int
	logger    *zap.Logger
}

func NewEntityService(ner NERClient, chunker TextChunker, threshold float64, maxChars int, logger *zap.Logger) EntityService {
	if threshold <= 0 {
		threshold = 0.80
	}
	if maxChars <= 0 {
		maxChars = 5000
	}
	return &entityService{
		ner:       ner,
		chunker:   chunker,
		threshold: threshold,
		maxChars:  maxChars,
		logger:    logger,
	}
}

func (s *entityService) Extract(ctx context.Context, text *models.ExtractedText) *EntityResult {
	cleaned := preprocessForNER(text.Text)

	tokenChunks, err := s.predictChunked(ctx, cleaned)
	if err != nil {
		// Model unavailable or failing internally: switch to rules. Low
		// per-entity confidence never lands here; that is filtered below.
		s.logger.Warn("ner model unavailable, using rule-based fallback", zap.Error(err))
		return s.fallback(text.Text)
	}

	entities := s.postProcess(tokenChunks)
	if len(entities) == 0 {
		s.logger.Info("model produced no entities above threshold, using rule-based fallback")
		return s.fallback(text.Text)
	}

	return &EntityResult{
		Entities: entities,
		Contact:  contactFromEntities(entities, text.Text),
		Degraded: false,
	}
}

// predictChunked runs the model over each chunk and keeps the token
// slices separate. Positions are within-chunk; they are only ever
// compared to positions from the same chunk.
func (s *entityService) predictChunked(ctx context.Context, text string) ([][]NERToken, error) {
	chunks := s.chunker.ChunkText(text, s.maxChars, 0)

	var all [][]NERToken
	for _, chunk := range chunks {
		tokens, err := s.ner.Predict(ctx, chunk)
		if err != nil {
			return nil, err
		}
		all = append(all, tokens)
	}

	return all, nil
}

// postProcess groups adjacent same-label tokens, filters by confidence and
// deduplicates. A group's confidence is the minimum of its tokens: a chain
// is only as strong as its weakest link. Grouping runs per chunk, so a
// span never merges across a chunk boundary.
func (s *entityService) postProcess(tokenChunks [][]NERToken) []models.Entity {
	var grouped []NERToken
	for _, tokens := range tokenChunks {
		grouped = append(grouped, groupAdjacentTokens(tokens)...)
	}

	byKey := make(map[string]models.Entity)
	for _, g := range grouped {
		entityType, ok := mapLabel(g.Label)
		if !ok {
			continue
		}
		if g.Score < s.threshold {
			continue
		}

		text := strings.TrimSpace(g.Word)
		if len(text) < 2 {
			continue
		}
		if entityType == models.EntitySkill {
			text = normalizeSkill(text)
		}

		entity := models.Entity{
			Type:       entityType,
			Text:       text,
			Confidence: g.Score,
			Source:     models.SourceModel,
		}

		if existing, ok := byKey[entity.Key()]; !ok || entity.Confidence > existing.Confidence {
			byKey[entity.Key()] = entity
		}
	}

	return sortEntities(byKey)
}

func groupAdjacentTokens(tokens []NERToken) []NERToken {
	if len(tokens) == 0 {
		return nil
	}

	sorted := make([]NERToken, len(tokens))
	copy(sorted, tokens)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var grouped []NERToken
	current := cleanToken(sorted[0])

	for _, tok := range sorted[1:] {
		tok = cleanToken(tok)
		if tok.Label == current.Label && tok.Start-current.End <= 2 {
			current.Word += " " + tok.Word
			current.End = tok.End
			if tok.Score < current.Score {
				current.Score = tok.Score
			}
			continue
		}
		grouped = append(grouped, current)
		current = tok
	}
	grouped = append(grouped, current)

	return grouped
}

// cleanToken drops WordPiece continuation markers from subword tokens.
func cleanToken(tok NERToken) NERToken {
	tok.Word = strings.ReplaceAll(tok.Word, "##", "")
	return tok
}

func mapLabel(label string) (models.EntityType, bool) {
	switch strings.ToUpper(label) {
	case "SKILLS", "SKILL":
		return models.EntitySkill, true
	case "JOB_TITLE", "DESIGNATION":
		return models.EntityJobTitle, true
	case "COMPANY", "COMPANIES_WORKED_AT":
		return models.EntityCompany, true
	case "EDUCATION", "DEGREE", "UNIVERSITY", "COLLEGE_NAME":
		return models.EntityEducation, true
	case "PERSON", "NAME", "EMAIL", "PHONE", "LINKEDIN":
		return models.EntityContact, true
	default:
		return "", false
	}
}

// fallback runs the rule-based extractors: contact regexes, the skills
// vocabulary and line heuristics for titles, education and employers.
func (s *entityService) fallback(text string) *EntityResult {
	byKey := make(map[string]models.Entity)

	add := func(entityType models.EntityType, value string, confidence float64) {
		value = strings.TrimSpace(value)
		if len(value) < 2 {
			return
		}
		entity := models.Entity{
			Type:       entityType,
			Text:       value,
			Confidence: confidence,
			Source:     models.SourceRules,
		}
		if existing, ok := byKey[entity.Key()]; !ok || entity.Confidence > existing.Confidence {
			byKey[entity.Key()] = entity
		}
	}

	if email := emailPattern.FindString(text); email != "" {
		add(models.EntityContact, email, 0.95)
	}
	if phone := strings.TrimSpace(phonePattern.FindString(text)); phone != "" {
		add(models.EntityContact, phone, 0.85)
	}
	if profile := linkedinPattern.FindString(text); profile != "" {
		add(models.EntityContact, profile, 0.95)
	}

	for _, skill := range skillsVocabulary {
		if wordBoundary(skill).MatchString(text) {
			add(models.EntitySkill, normalizeSkill(skill), 0.85)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		if len(lower) < 5 || len(lower) > 120 {
			continue
		}
		if containsAny(lower, jobTitleKeywords) {
			add(models.EntityJobTitle, line, 0.80)
		}
		if containsAny(lower, educationKeywords) {
			add(models.EntityEducation, line, 0.80)
		}
		if containsAny(lower, companyIndicators) {
			add(models.EntityCompany, line, 0.80)
		}
	}

	entities := sortEntities(byKey)

	return &EntityResult{
		Entities: entities,
		Contact:  contactFromEntities(entities, text),
		Degraded: true,
	}
}

func containsAny(line string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(line, kw) {
			return true
		}
	}
	return false
}

// contactFromEntities builds the structured contact view. Regexes over the
// full text fill in anything the entity set missed.
func contactFromEntities(entities []models.Entity, fullText string) models.ContactInfo {
	var contact models.ContactInfo

	for _, e := range entities {
		if e.Type != models.EntityContact {
			continue
		}
		value := strings.TrimSpace(e.Text)
		switch {
		case emailPattern.MatchString(value):
			if contact.Email == "" {
				contact.Email = emailPattern.FindString(value)
			}
		case linkedinPattern.MatchString(value):
			if contact.LinkedIn == "" {
				contact.LinkedIn = linkedinPattern.FindString(value)
			}
		case phonePattern.MatchString(value):
			if contact.Phone == "" {
				contact.Phone = strings.TrimSpace(phonePattern.FindString(value))
			}
		case contact.Name == "" && len(strings.Fields(value)) >= 2:
			contact.Name = value
		}
	}

	if contact.Email == "" {
		contact.Email = emailPattern.FindString(fullText)
	}
	if contact.LinkedIn == "" {
		contact.LinkedIn = linkedinPattern.FindString(fullText)
	}
	if contact.Phone == "" {
		contact.Phone = strings.TrimSpace(phonePattern.FindString(fullText))
	}

	return contact
}

// sortEntities produces a deterministic ordering: type, then confidence
// descending, then text. Identical input always yields identical output.
func sortEntities(byKey map[string]models.Entity) []models.Entity {
	entities := make([]models.Entity, 0, len(byKey))
	for _, e := range byKey {
		entities = append(entities, e)
	}

	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Type != entities[j].Type {
			return entities[i].Type < entities[j].Type
		}
		if entities[i].Confidence != entities[j].Confidence {
			return entities[i].Confidence > entities[j].Confidence
		}
		return entities[i].Text < entities[j].Text
	})

	return entities
}

// preprocessForNER collapses whitespace and strips symbols that confuse
// the sequence model.
func preprocessForNER(text string) string {
	text = symbolPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

package services

import (
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
)

// KeywordSet holds the candidate keywords of one document keyed by
// normalized form, with the original surface form kept for display and
// per-keyword frequency for importance ranking.
type KeywordSet struct {
	display map[string]string
	freq    map[string]int
}

func (k *KeywordSet) Has(normalized string) bool {
	_, ok := k.freq[normalized]
	return ok
}

func (k *KeywordSet) Display(normalized string) string {
	return k.display[normalized]
}

func (k *KeywordSet) Frequency(normalized string) int {
	return k.freq[normalized]
}

func (k *KeywordSet) Normalized() []string {
	keys := make([]string, 0, len(k.freq))
	for key := range k.freq {
		keys = append(keys, key)
	}
	return keys
}

// KeywordExtractor pulls candidate keywords and noun phrases out of text
// using part-of-speech tagging, independent of any embedding.
type KeywordExtractor interface {
	Extract(text string) (*KeywordSet, error)
}

type keywordExtractor struct{}

func NewKeywordExtractor() KeywordExtractor {
	return &keywordExtractor{}
}

// keywordStopwords drops generic resume/posting vocabulary that carries no
// matching signal.
var keywordStopwords = map[string]struct{}{
	"year": {}, "month": {}, "experience": {}, "team": {}, "work": {},
	"job": {}, "role": {}, "position": {}, "candidate": {}, "ability": {},
	"skill": {}, "knowledge": {}, "requirement": {}, "responsibility": {},
	"company": {}, "time": {}, "plus": {}, "etc": {}, "way": {}, "day": {},
	"opportunity": {}, "environment": {}, "salary": {}, "benefit": {},
}

func (e *keywordExtractor) Extract(text string) (*KeywordSet, error) {
	doc, err := prose.NewDocument(text,
		prose.WithExtraction(false),
		prose.WithSegmentation(false))
	if err != nil {
		return nil, fmt.Errorf("pos tagging failed: %w", err)
	}

	set := &KeywordSet{
		display: make(map[string]string),
		freq:    make(map[string]int),
	}

	tokens := doc.Tokens()
	for i, tok := range tokens {
		if !isNounTag(tok.Tag) {
			continue
		}

		surface := strings.Trim(tok.Text, ".,;:!?()[]\"'")
		key := normalizeKeyword(surface)
		if key == "" {
			continue
		}
		if _, stop := keywordStopwords[key]; stop {
			continue
		}

		set.add(key, surface)

		// Noun-noun bigrams catch compound terms like "machine learning"
		// or "data engineer".
		if i+1 < len(tokens) && isNounTag(tokens[i+1].Tag) {
			next := strings.Trim(tokens[i+1].Text, ".,;:!?()[]\"'")
			nextKey := normalizeKeyword(next)
			if nextKey == "" {
				continue
			}
			if _, stop := keywordStopwords[nextKey]; stop {
				continue
			}
			set.add(key+" "+nextKey, surface+" "+next)
		}
	}

	return set, nil
}

func (k *KeywordSet) add(key, surface string) {
	k.freq[key]++
	if _, seen := k.display[key]; !seen {
		k.display[key] = surface
	}
}

func isNounTag(tag string) bool {
	switch tag {
	case "NN", "NNS", "NNP", "NNPS":
		return true
	default:
		return false
	}
}

// normalizeKeyword lowercases and applies a naive plural lemma so
// "containers" and "container" collapse to one key.
func normalizeKeyword(word string) string {
	word = strings.ToLower(strings.TrimSpace(word))
	if len(word) < 2 {
		return ""
	}
	if allDigits(word) {
		return ""
	}
	if len(word) > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss") {
		word = strings.TrimSuffix(word, "s")
	}
	return word
}

func allDigits(word string) bool {
	for _, r := range word {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

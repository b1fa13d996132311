package pipeline

import (
	"strings"

	"eventreel/services/content"
)

// Two independent search-term strategies, selected by keyword availability:
// the AI-provided keywords augmented with a contextual term, or a tokenized
// fallback derived from the caption. They are never merged.

const fallbackSearchTerm = "celebration event"

// contextTerms are explicit domain words looked for in the caption; the
// first one found augments context-free AI keywords.
var contextTerms = []string{
	"birthday", "wedding", "anniversary", "graduation", "conference",
	"concert", "festival", "party", "workshop", "opening", "launch",
}

// genericContextTerm is appended when the caption names no explicit domain.
const genericContextTerm = "celebration"

var stopWords = map[string]struct{}{
	"about": {}, "after": {}, "again": {}, "because": {}, "been": {},
	"before": {}, "being": {}, "between": {}, "come": {}, "could": {},
	"does": {}, "doing": {}, "during": {}, "each": {}, "every": {},
	"from": {}, "have": {}, "having": {}, "here": {}, "into": {},
	"join": {}, "just": {}, "like": {}, "more": {}, "most": {},
	"only": {}, "other": {}, "over": {}, "some": {}, "such": {},
	"than": {}, "that": {}, "their": {}, "them": {}, "then": {},
	"there": {}, "these": {}, "they": {}, "this": {}, "those": {},
	"through": {}, "under": {}, "very": {}, "were": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "while": {},
	"will": {}, "with": {}, "would": {}, "your": {},
}

// BuildSearchTerm constructs the stock-catalog query from the caption
// analysis.
func BuildSearchTerm(analysis content.ContentAnalysis) string {
	if len(analysis.VideoKeywords) > 0 {
		return termFromKeywords(analysis)
	}
	return termFromCaption(analysis.Caption)
}

// termFromKeywords takes the top 3 AI keywords and, when none of them carry
// obvious context, appends a contextual term: an explicit domain word found
// in the caption, else a generic one.
func termFromKeywords(analysis content.ContentAnalysis) string {
	keywords := analysis.VideoKeywords
	if len(keywords) > 3 {
		keywords = keywords[:3]
	}

	hasContext := false
	for _, kw := range keywords {
		if isContextTerm(kw) {
			hasContext = true
			break
		}
	}

	terms := append([]string{}, keywords...)
	if !hasContext {
		if domain := domainWordIn(analysis.Caption); domain != "" {
			terms = append(terms, domain)
		} else {
			terms = append(terms, genericContextTerm)
		}
	}

	return strings.Join(terms, " ")
}

// termFromCaption tokenizes the caption, discards stop-words and short
// tokens, and takes the first 3 survivors.
func termFromCaption(caption string) string {
	tokens := strings.FieldsFunc(strings.ToLower(caption), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	var kept []string
	for _, tok := range tokens {
		if len(tok) <= 3 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		kept = append(kept, tok)
		if len(kept) == 3 {
			break
		}
	}

	if len(kept) == 0 {
		return fallbackSearchTerm
	}
	return strings.Join(kept, " ")
}

func isContextTerm(word string) bool {
	word = strings.ToLower(word)
	for _, t := range contextTerms {
		if strings.Contains(word, t) {
			return true
		}
	}
	return word == genericContextTerm
}

func domainWordIn(caption string) string {
	lower := strings.ToLower(caption)
	for _, t := range contextTerms {
		if strings.Contains(lower, t) {
			return t
		}
	}
	return ""
}

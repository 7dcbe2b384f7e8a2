// Package match provides the lexical overlap primitives used by correlate
// stages and the severity scorer: tokenization with stopword filtering,
// shared-keyword counting, and a bounded alignment score.
package match

import (
	"strings"
	"unicode"
)

// #region stopwords

// stopwords contains common English words excluded from term matching.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"being": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "shall": true, "not": true,
	"no": true, "and": true, "or": true, "but": true, "if": true,
	"then": true, "than": true, "so": true, "as": true, "at": true,
	"by": true, "for": true, "from": true, "in": true, "into": true,
	"of": true, "on": true, "to": true, "with": true, "about": true,
	"up": true, "out": true, "it": true, "its": true, "this": true,
	"that": true, "what": true, "which": true, "who": true, "how": true,
	"when": true, "where": true, "why": true, "best": true, "top": true,
	"near": true, "me": true, "my": true, "your": true, "our": true,
}

// #endregion stopwords

// #region tokenize

// Tokenize splits text into unique lowercase non-stopword tokens.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool)
	var tokens []string
	for _, w := range words {
		if len(w) < 2 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// SharedKeywords returns the count of tokens present in both slices.
func SharedKeywords(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	count := 0
	for _, t := range b {
		if set[t] {
			count++
		}
	}
	return count
}

// #endregion tokenize

// #region overlap

// OverlapsAny reports whether text shares at least one non-stopword token
// with any of the given terms, or contains a term as a whole phrase.
func OverlapsAny(text string, terms []string) bool {
	if text == "" || len(terms) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	textTokens := Tokenize(text)
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
		if SharedKeywords(textTokens, Tokenize(term)) > 0 {
			return true
		}
	}
	return false
}

// AlignmentScore measures lexical overlap between an item's text and a set
// of context terms. 0 means no shared tokens, 1 means every item token is
// covered by the context vocabulary.
func AlignmentScore(itemText string, contextTerms []string) float64 {
	itemTokens := Tokenize(itemText)
	if len(itemTokens) == 0 || len(contextTerms) == 0 {
		return 0
	}
	vocab := make(map[string]bool)
	for _, term := range contextTerms {
		for _, tok := range Tokenize(term) {
			vocab[tok] = true
		}
	}
	if len(vocab) == 0 {
		return 0
	}
	covered := 0
	for _, tok := range itemTokens {
		if vocab[tok] {
			covered++
		}
	}
	return float64(covered) / float64(len(itemTokens))
}

// #endregion overlap

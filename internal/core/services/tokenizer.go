package services

import (
	"slices"
	"strings"
	"unicode"
)

// minTermLength is the shortest token kept in a lexical query.
const minTermLength = 2

// stopWords are dropped from lexical queries and term boosts.
var stopWords = map[string]bool{
	"a": true, "about": true, "after": true, "all": true, "also": true,
	"an": true, "and": true, "any": true, "are": true, "as": true,
	"at": true, "be": true, "been": true, "but": true, "by": true,
	"can": true, "could": true, "did": true, "do": true, "does": true,
	"for": true, "from": true, "had": true, "has": true, "have": true,
	"he": true, "her": true, "his": true, "how": true, "i": true,
	"if": true, "in": true, "into": true, "is": true, "it": true,
	"its": true, "me": true, "my": true, "near": true, "no": true,
	"not": true, "of": true, "on": true, "or": true, "our": true,
	"she": true, "should": true, "so": true, "than": true, "that": true,
	"the": true, "their": true, "them": true, "then": true, "there": true,
	"these": true, "they": true, "this": true, "to": true, "was": true,
	"we": true, "were": true, "what": true, "when": true, "where": true,
	"which": true, "who": true, "why": true, "will": true, "with": true,
	"would": true, "you": true, "your": true,
}

// tokens lowercases text, replaces every character outside letters, digits
// and underscore with a space, and splits on whitespace.
func tokens(text string) []string {
	return strings.Fields(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return unicode.ToLower(r)
		}
		return ' '
	}, text))
}

// QueryTerms returns the tokens of text that survive stopword and length
// filtering, in input order.
func QueryTerms(text string) []string {
	fields := tokens(text)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < minTermLength || stopWords[f] {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

// containsRun reports whether run occurs as a contiguous subsequence of seq.
func containsRun(seq, run []string) bool {
	if len(run) == 0 || len(run) > len(seq) {
		return false
	}
	for i := 0; i+len(run) <= len(seq); i++ {
		if slices.Equal(seq[i:i+len(run)], run) {
			return true
		}
	}
	return false
}

// BuildQuery turns free text into an FTS5 expression: every surviving term
// gets a prefix marker and terms are joined with AND. An empty result means
// there is nothing to search for.
func BuildQuery(text string) string {
	terms := QueryTerms(text)
	if len(terms) == 0 {
		return ""
	}
	for i, t := range terms {
		terms[i] = t + "*"
	}
	return strings.Join(terms, " AND ")
}

// wordCount counts whitespace-separated words.
func wordCount(text string) int {
	return len(strings.Fields(text))
}

// Package tokens splits free text into comparable terms.
package tokens

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// MinLength is the shortest term kept by Split, in runes.
const MinLength = 2

// Split normalises text (NFKC, case folded) and returns its word terms in order.
// A term is a run of letters, digits or underscores of at least MinLength runes.
func Split(text string) []string {
	if text == "" {
		return nil
	}

	folded := cases.Fold().String(norm.NFKC.String(text))

	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})

	terms := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= MinLength {
			terms = append(terms, f)
		}
	}
	return terms
}

// Set returns the distinct terms of text.
func Set(text string) map[string]struct{} {
	terms := Split(text)
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return set
}

// Overlap returns the share of query terms that also occur in text, in [0, 1].
func Overlap(query, text string) float64 {
	q := Set(query)
	if len(q) == 0 {
		return 0
	}
	t := Set(text)

	hits := 0
	for term := range q {
		if _, ok := t[term]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(q))
}

package documents

import (
	"sort"
	"strings"
	"unicode"
)

const maxSearchTerms = 64

// BuildSearchTerms derives the lowercase token set persisted with each record
// to support simple term search: loan id, uploader name, description and
// filename, plus any extraction tokens supplied by the caller.
func BuildSearchTerms(loanID, uploaderName, description, fileName string, extra []string) []string {
	seen := make(map[string]struct{})
	var terms []string

	add := func(tok string) {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if len(tok) < 2 || len(terms) >= maxSearchTerms {
			return
		}
		if _, ok := seen[tok]; ok {
			return
		}
		seen[tok] = struct{}{}
		terms = append(terms, tok)
	}

	add(loanID)
	add(NumericLoanID(loanID))
	for _, tok := range tokenize(uploaderName) {
		add(tok)
	}
	for _, tok := range tokenize(description) {
		add(tok)
	}
	for _, tok := range tokenize(fileName) {
		add(tok)
	}
	for _, tok := range extra {
		add(tok)
	}

	sort.Strings(terms)
	return terms
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Package enrich derives report signals from article text.
package enrich

import (
	"regexp"
	"strings"
)

// moneyPattern matches a dollar amount, a bare grouped or decimal number, or a number
// followed by a currency word. Any free-standing number matches.
var moneyPattern = regexp.MustCompile(`(?i)\$\d+(\.\d{1,2})?|\d+(,\d{3})*(\.\d{1,2})?|(\d+|\d{1,3})\s*(dollars|usd)`)

// Signals are the derived fields of one article.
type Signals struct {
	PhraseCount   int
	ContainsMoney bool
}

// Enricher computes Signals for a fixed search phrase.
type Enricher struct {
	phrase string
}

// New returns an Enricher counting phrase.
func New(phrase string) *Enricher {
	return &Enricher{phrase: phrase}
}

// Enrich computes the signals for title and description.
func (e *Enricher) Enrich(title, description string) Signals {
	return Signals{
		PhraseCount:   CountPhrase(title, description, e.phrase),
		ContainsMoney: DetectMoney(title, description),
	}
}

// CountPhrase counts case-insensitive, non-overlapping occurrences of phrase in title and
// description independently and returns the sum.
func CountPhrase(title, description, phrase string) int {
	return count(title, phrase) + count(description, phrase)
}

func count(text, phrase string) int {
	if phrase == "" {
		return 0
	}
	return strings.Count(strings.ToLower(text), strings.ToLower(phrase))
}

// DetectMoney reports whether either field mentions a monetary amount.
func DetectMoney(title, description string) bool {
	return moneyPattern.MatchString(title) || moneyPattern.MatchString(description)
}

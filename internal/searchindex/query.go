package searchindex

import (
	"strings"
	"unicode"
)

// Term is one parsed query clause.
type Term struct {
	// Field restricts the term to one indexed field; empty means any field.
	Field  string
	Text   string
	Prefix bool
}

// ParseQuery splits a query into terms.
//
// Clauses are whitespace separated. "field:text" restricts a clause to an
// indexed field and a trailing "*" makes it a prefix match. Clause text is
// tokenized like indexed text, so "cell:A-1" yields two terms.
func ParseQuery(q string, fields []string) []Term {
	var terms []Term
	for _, clause := range strings.Fields(q) {
		field := ""
		if name, rest, ok := strings.Cut(clause, ":"); ok && isField(name, fields) {
			field, clause = name, rest
		}
		prefix := strings.HasSuffix(clause, "*")
		clause = strings.TrimRight(clause, "*")

		tokens := Tokenize(clause)
		for i, tok := range tokens {
			terms = append(terms, Term{
				Field:  field,
				Text:   tok,
				Prefix: prefix && i == len(tokens)-1,
			})
		}
	}
	return terms
}

// Tokenize lowercases text and splits it on anything that is not a letter or digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func isField(name string, fields []string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}

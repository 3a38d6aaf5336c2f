// Package tokenizer normalises text for the keyword index and the
// highlighter. It lower-cases input, splits on non-alphanumeric
// boundaries, and drops very short terms. No stemming or stop-word
// removal is applied so that highlighted terms match the query exactly.
package tokenizer

import (
	"strings"
	"unicode"
)

// Token is a normalised term and its ordinal position in the text.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks text into lowercased tokens, keeping only terms longer
// than two characters.
func Tokenize(text string) []Token {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]Token, 0, len(words))
	pos := 0
	for _, word := range words {
		if len(word) <= 2 {
			continue
		}
		tokens = append(tokens, Token{Term: word, Position: pos})
		pos++
	}
	return tokens
}

// Terms returns just the term strings from Tokenize, in order.
func Terms(text string) []string {
	tokens := Tokenize(text)
	terms := make([]string, len(tokens))
	for i, t := range tokens {
		terms[i] = t.Term
	}
	return terms
}

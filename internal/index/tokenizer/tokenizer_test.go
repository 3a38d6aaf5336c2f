package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeLowercasesAndSplits(t *testing.T) {
	tokens := Tokenize("Machine-Learning models, DATABASES!")
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	assert.Equal(t, []string{"machine", "learning", "models", "databases"}, terms)
}

func TestTokenizeDropsShortTerms(t *testing.T) {
	tokens := Tokenize("a an the to of AI ML database")
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	// Only terms longer than two characters survive, so "the" stays.
	assert.Equal(t, []string{"the", "database"}, terms)
}

func TestTokenizePositionsAreSequential(t *testing.T) {
	tokens := Tokenize("alpha by beta it gamma")
	assert.Len(t, tokens, 3)
	for i, tok := range tokens {
		assert.Equal(t, i, tok.Position)
	}
}

func TestTokenizeKeepsDigits(t *testing.T) {
	tokens := Tokenize("error 404 code abc123")
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	assert.Equal(t, []string{"error", "404", "code", "abc123"}, terms)
}

func TestTokenizeNoStemming(t *testing.T) {
	tokens := Tokenize("running runs runner")
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	assert.Equal(t, []string{"running", "runs", "runner"}, terms)
}

func TestTokenizeEmpty(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("  ... !!! "))
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"vector", "search"}, Terms("Vector search"))
}

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCompleteSentencesSingle(t *testing.T) {
	complete, rest := extractCompleteSentences("Hello there.")
	assert.Equal(t, []string{"Hello there."}, complete)
	assert.Equal(t, "", rest)
}

func TestExtractCompleteSentencesMultiple(t *testing.T) {
	complete, rest := extractCompleteSentences("One. Two! Three? ")
	assert.Equal(t, []string{"One.", "Two!", "Three?"}, complete)
	// The remainder is returned untrimmed, like the leading space kept
	// in TestExtractCompleteSentencesTrailingPartial.
	assert.Equal(t, " ", rest)
}

func TestExtractCompleteSentencesTrailingPartial(t *testing.T) {
	complete, rest := extractCompleteSentences("Finished sentence. and an unfinished one")
	assert.Equal(t, []string{"Finished sentence."}, complete)
	assert.Equal(t, " and an unfinished one", rest)
}

func TestExtractCompleteSentencesNoTerminator(t *testing.T) {
	complete, rest := extractCompleteSentences("still buffering")
	assert.Empty(t, complete)
	assert.Equal(t, "still buffering", rest)
}

func TestExtractCompleteSentencesTerminatorWithoutWhitespaceIsNotASplit(t *testing.T) {
	// "3.14" shouldn't split at the decimal point since it isn't
	// followed by whitespace or end-of-buffer.
	complete, rest := extractCompleteSentences("it costs $3.14 total")
	assert.Empty(t, complete)
	assert.Equal(t, "it costs $3.14 total", rest)
}

func TestExtractCompleteSentencesColonTerminator(t *testing.T) {
	complete, rest := extractCompleteSentences("Here's the thing: it works.")
	assert.Equal(t, []string{"Here's the thing:", "it works."}, complete)
	assert.Equal(t, "", rest)
}

func TestExtractCompleteSentencesAtBufferEnd(t *testing.T) {
	// A terminator at the very end of the buffer counts as complete
	// even with nothing following it yet.
	complete, rest := extractCompleteSentences("Is that so?")
	assert.Equal(t, []string{"Is that so?"}, complete)
	assert.Equal(t, "", rest)
}

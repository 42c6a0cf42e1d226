package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentences(t *testing.T) {
	sentences := Sentences("Machine learning is powerful. It learns from data. Does it generalize?")
	assert.Len(t, sentences, 3)
	assert.Equal(t, "Machine learning is powerful.", sentences[0])

	assert.Nil(t, Sentences(""))
	assert.Nil(t, Sentences("   \n\t  "))

	single := Sentences("no punctuation at all")
	assert.Len(t, single, 1)
}

func TestNormalize(t *testing.T) {
	got := Normalize("Check THIS out: https://example.com/page now!")
	assert.NotContains(t, got, "example.com")
	assert.NotContains(t, got, ":")
	assert.Contains(t, got, "check this out")
	assert.Contains(t, got, "now!")

	assert.Equal(t, "", Normalize("   "))
	assert.Equal(t, "plain text stays.", Normalize("Plain text stays."))
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount(""))
	assert.Equal(t, 0, WordCount("   "))
	assert.Equal(t, 4, WordCount("four words in here"))
	assert.Equal(t, 2, WordCount("  spaced \t out  "))
}

func TestLengthVariance(t *testing.T) {
	assert.Equal(t, 0.0, LengthVariance(nil))
	assert.Equal(t, 0.0, LengthVariance([]string{"only one sentence"}))

	// Uniform sentence lengths have zero variance.
	uniform := []string{"one two three", "four five six", "seven eight nine"}
	assert.Equal(t, 0.0, LengthVariance(uniform))

	// Lengths 2 and 6: mean 4, population variance 4.
	got := LengthVariance([]string{"two words", "one two three four five six"})
	assert.InDelta(t, 4.0, got, 1e-9)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "ab", Truncate("abcd", 2))
	assert.Equal(t, "abcd", Truncate("abcd", 0))
	assert.Equal(t, "hél", Truncate("héllo", 3))
}

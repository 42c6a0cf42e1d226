// Package nlp provides the shared text utilities behind both detectors:
// sentence segmentation, normalization and word statistics.
package nlp

import (
	"regexp"
	"strings"

	prose "github.com/jdkato/prose/v2"

	"github.com/jasper-ai/backend/pkg/logger"
)

// SegmentFunc splits text into sentences. Detectors and the corpus store take
// it as a constructor parameter so tests can substitute deterministic fakes.
type SegmentFunc func(text string) []string

var (
	urlPattern     = regexp.MustCompile(`http\S+|www\S+`)
	specialPattern = regexp.MustCompile(`[^a-z0-9\s.,!?]`)
	naivePattern   = regexp.MustCompile(`[^.!?]+[.!?]?`)
)

// Sentences segments text using the punkt-style segmenter from prose. If the
// segmenter rejects the input it falls back to a naive punctuation split so
// malformed text still produces a usable result.
func Sentences(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	doc, err := prose.NewDocument(text,
		prose.WithTokenization(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		logger.Warn("Sentence segmentation failed, using naive splitter")
		return naiveSentences(text)
	}

	var sentences []string
	for _, s := range doc.Sentences() {
		trimmed := strings.TrimSpace(s.Text)
		if trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}

	if len(sentences) == 0 {
		return naiveSentences(text)
	}

	return sentences
}

func naiveSentences(text string) []string {
	var sentences []string
	for _, part := range naivePattern.FindAllString(text, -1) {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

// Normalize lowercases text, strips URLs and drops characters outside basic
// alphanumerics and sentence punctuation. Used by the whole-document
// comparison path only; the sentence path works on raw sentences.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = urlPattern.ReplaceAllString(text, "")
	text = specialPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// LengthVariance returns the population variance of per-sentence word counts.
func LengthVariance(sentences []string) float64 {
	if len(sentences) < 2 {
		return 0
	}

	lengths := make([]float64, len(sentences))
	sum := 0.0
	for i, s := range sentences {
		lengths[i] = float64(WordCount(s))
		sum += lengths[i]
	}
	mean := sum / float64(len(lengths))

	variance := 0.0
	for _, l := range lengths {
		variance += (l - mean) * (l - mean)
	}
	return variance / float64(len(lengths))
}

// Truncate limits text to at most n runes, for model token budgets.
func Truncate(text string, n int) string {
	if n <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}

package plagiarism

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// tfidfVectorizer computes TF-IDF vectors over a document set fitted in one
// shot, so vocabulary and IDF reflect the input and the corpus jointly. The
// vocabulary is capped at maxFeatures terms, highest corpus frequency first.
type tfidfVectorizer struct {
	maxFeatures  int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

func newTfidfVectorizer(maxFeatures int) *tfidfVectorizer {
	return &tfidfVectorizer{
		maxFeatures:  maxFeatures,
		tokenPattern: regexp.MustCompile(`[a-z0-9]+`),
		stopwords:    englishStopwords(),
	}
}

// fitTransform vectorizes all texts jointly and returns L2-normalized rows.
func (v *tfidfVectorizer) fitTransform(texts []string) [][]float64 {
	tokenized := make([][]string, len(texts))
	df := make(map[string]int)
	tally := make(map[string]int)

	for i, text := range texts {
		tokens := v.tokenize(text)
		tokenized[i] = tokens

		seen := make(map[string]struct{})
		for _, tok := range tokens {
			tally[tok]++
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := make([]string, 0, len(tally))
	for term := range tally {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if tally[terms[i]] != tally[terms[j]] {
			return tally[terms[i]] > tally[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if v.maxFeatures > 0 && len(terms) > v.maxFeatures {
		terms = terms[:v.maxFeatures]
	}

	vocabulary := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	n := float64(len(texts))
	for i, term := range terms {
		vocabulary[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}

	rows := make([][]float64, len(texts))
	for i, tokens := range tokenized {
		vec := make([]float64, len(terms))
		for _, tok := range tokens {
			if idx, ok := vocabulary[tok]; ok {
				vec[idx]++
			}
		}
		for j := range vec {
			vec[j] *= idf[j]
		}
		l2Normalize(vec)
		rows[i] = vec
	}

	return rows
}

func (v *tfidfVectorizer) tokenize(text string) []string {
	raw := v.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		if _, isStop := v.stopwords[tok]; isStop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func l2Normalize(vec []float64) {
	norm := 0.0
	for _, x := range vec {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return
	}
	for i := range vec {
		vec[i] /= norm
	}
}

// cosine assumes both vectors are already L2-normalized.
func cosine(a, b []float64) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

func englishStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for",
		"to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was",
		"were", "be", "been", "being", "it", "its", "this", "that", "these",
		"those", "from", "up", "down", "over", "under", "again", "further",
		"than", "so", "such", "into", "about", "between", "through", "during",
		"before", "after", "above", "below", "out", "off", "own", "same",
		"too", "very", "can", "will", "just", "not", "no", "nor", "only",
		"he", "she", "they", "them", "his", "her", "their", "we", "you",
		"i", "me", "my", "your", "our", "us", "what", "which", "who", "whom",
		"when", "where", "why", "how", "all", "any", "both", "each", "few",
		"more", "most", "other", "some", "do", "does", "did", "doing", "have",
		"has", "had", "having", "there", "here", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

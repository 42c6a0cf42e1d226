// Package plagiarism implements hybrid overlap detection: whole-document
// TF-IDF similarity against the stored corpus combined with per-sentence
// embedding search over the corpus vector index.
package plagiarism

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jasper-ai/backend/internal/corpus"
	"github.com/jasper-ai/backend/internal/inference"
	"github.com/jasper-ai/backend/internal/nlp"
	"github.com/jasper-ai/backend/pkg/logger"
)

const (
	// tfidfWeight and embeddingWeight combine the two similarity sources
	// when at least one sentence match exists.
	tfidfWeight     = 0.4
	embeddingWeight = 0.6

	// neighborsPerSentence bounds the vector lookups per input sentence.
	neighborsPerSentence = 3

	// matchThreshold filters weak sentence matches, on the 1/(1+d) scale.
	matchThreshold = 0.70

	// maxMatches caps the reported match list.
	maxMatches = 10

	// sparseCorpusSize is the document count under which scores carry a
	// reliability note.
	sparseCorpusSize = 100

	maxTfidfFeatures = 1000
)

const methodName = "hybrid (TF-IDF + Embeddings + Vector Index)"

// Match is one input sentence paired with its closest corpus source.
type Match struct {
	InputSentence string  `json:"input_sentence"`
	MatchedSource string  `json:"matched_source"`
	Similarity    float64 `json:"similarity"`
	SourceURL     string  `json:"source_url"`
}

// Result is the per-request detection outcome. It is never persisted here;
// history storage is the API layer's concern.
type Result struct {
	Score      float64 `json:"plagiarism_score"`
	Level      string  `json:"plagiarism_level"`
	Matches    []Match `json:"matched_sentences"`
	CorpusSize int     `json:"corpus_size"`
	Method     string  `json:"method"`
	Note       string  `json:"note,omitempty"`
}

type Detector struct {
	store    *corpus.Store
	embedder inference.Embedder
	segment  nlp.SegmentFunc
}

func NewDetector(store *corpus.Store, embedder inference.Embedder, segment nlp.SegmentFunc) *Detector {
	if segment == nil {
		segment = nlp.Sentences
	}
	return &Detector{
		store:    store,
		embedder: embedder,
		segment:  segment,
	}
}

// Detect scores text against the corpus. Empty or whitespace-only input
// returns a zero-score result immediately. Detection never mutates the
// corpus and is safe to call concurrently.
func (d *Detector) Detect(ctx context.Context, text string) (*Result, error) {
	corpusSize := d.store.DocumentCount()

	if strings.TrimSpace(text) == "" {
		return &Result{
			Score:      0,
			Level:      "None",
			Matches:    []Match{},
			CorpusSize: corpusSize,
			Method:     methodName,
		}, nil
	}

	normalized := nlp.Normalize(text)
	avgTfidf := d.tfidfSimilarity(normalized)

	sentences := d.segment(text)
	matches, degraded := d.embeddingMatches(ctx, sentences)

	var score float64
	if len(matches) > 0 {
		var sum float64
		for _, m := range matches {
			sum += m.Similarity
		}
		avgEmbedding := sum / float64(len(matches))
		score = (tfidfWeight*avgTfidf + embeddingWeight*avgEmbedding) * 100
	} else {
		score = avgTfidf * 100
	}

	level := "Low"
	switch {
	case score < 10:
		level = "Low"
	case score < 25:
		level = "Moderate"
	default:
		level = "High"
	}

	// Deterministic output: strongest matches first, capped at maxMatches.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}

	note := ""
	if corpusSize < sparseCorpusSize {
		note = "Results based on indexed corpus. Expand corpus for better accuracy."
	}
	if degraded {
		note = strings.TrimSpace(note + " Sentence-level matching unavailable; score reflects TF-IDF only.")
	}

	logger.Debug("Plagiarism detection completed",
		zap.Float64("score", score),
		zap.String("level", level),
		zap.Int("matches", len(matches)),
		zap.Int("corpus_size", corpusSize),
	)

	return &Result{
		Score:      round2(score),
		Level:      level,
		Matches:    matches,
		CorpusSize: corpusSize,
		Method:     methodName,
		Note:       note,
	}, nil
}

// tfidfSimilarity vectorizes the normalized input jointly with every stored
// corpus text and averages the cosine similarities. An empty corpus scores 0.
func (d *Detector) tfidfSimilarity(normalized string) float64 {
	texts := d.store.Texts()
	if len(texts) == 0 {
		return 0
	}

	all := make([]string, 0, len(texts)+1)
	all = append(all, normalized)
	all = append(all, texts...)

	rows := newTfidfVectorizer(maxTfidfFeatures).fitTransform(all)

	var sum float64
	for _, row := range rows[1:] {
		sum += cosine(rows[0], row)
	}
	return sum / float64(len(texts))
}

// embeddingMatches encodes the raw input sentences and collects corpus
// matches above the similarity threshold. An encoding failure degrades to the
// TF-IDF-only path instead of failing the request.
func (d *Detector) embeddingMatches(ctx context.Context, sentences []string) ([]Match, bool) {
	if len(sentences) == 0 || d.store.Stats().VectorCount == 0 {
		return nil, false
	}

	embeddings, err := d.embedder.Encode(ctx, sentences)
	if err != nil {
		logger.Warn("Sentence encoding failed, degrading to TF-IDF only", zap.Error(err))
		return nil, true
	}

	var matches []Match
	for i, embedding := range embeddings {
		hits, err := d.store.Search(ctx, embedding, neighborsPerSentence)
		if err != nil {
			logger.Warn("Vector search failed, degrading to TF-IDF only", zap.Error(err))
			return nil, true
		}

		for _, hit := range hits {
			similarity := 1.0 / (1.0 + float64(hit.Distance))
			if similarity <= matchThreshold {
				continue
			}

			meta, ok := d.store.Resolve(hit.Slot)
			if !ok {
				logger.Warn("Search hit outside any document slot range", zap.Int64("slot", hit.Slot))
				continue
			}

			matches = append(matches, Match{
				InputSentence: sentences[i],
				MatchedSource: meta.Title,
				Similarity:    round4(similarity),
				SourceURL:     meta.URL,
			})
		}
	}

	return matches, false
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

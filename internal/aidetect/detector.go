// Package aidetect estimates whether text is machine-generated using an
// ensemble of three signals: language-model perplexity, sentence-length
// burstiness and an optional sequence-classifier probability.
package aidetect

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/jasper-ai/backend/internal/inference"
	"github.com/jasper-ai/backend/internal/nlp"
	"github.com/jasper-ai/backend/pkg/logger"
)

// Ensemble weights and normalization constants. Perplexity for typical human
// text sits around 50-200 and machine text 10-50; sentence-length variance
// around 30-100 for human text and 5-30 for machine text.
const (
	perplexityWeight = 0.35
	burstinessWeight = 0.25
	classifierWeight = 0.40

	perplexityCeiling = 200.0
	perplexityRange   = 150.0
	burstinessCeiling = 50.0
	burstinessRange   = 45.0

	// neutralClassifierScore substitutes for a missing or failing
	// classifier so one absent ensemble input never fails detection.
	neutralClassifierScore = 0.5
)

const methodName = "ensemble (Perplexity + Burstiness + Classifier)"

// ComponentScores are the normalized per-signal contributions (0-100),
// returned for explainability.
type ComponentScores struct {
	PerplexityScore float64 `json:"perplexity_score"`
	BurstinessScore float64 `json:"burstiness_score"`
	ClassifierScore float64 `json:"classifier_score"`
}

// Result is the per-request detection outcome.
type Result struct {
	Probability float64          `json:"ai_probability"`
	Confidence  string           `json:"ai_confidence"`
	Perplexity  *float64         `json:"perplexity"`
	Burstiness  *float64         `json:"burstiness"`
	Method      string           `json:"method"`
	Details     *ComponentScores `json:"details"`
}

// Detector combines the three estimators. The perplexity model is required;
// the classifier is an optional capability and may be nil.
type Detector struct {
	perplexity inference.PerplexityModel
	classifier inference.Classifier
	segment    nlp.SegmentFunc
}

func NewDetector(perplexity inference.PerplexityModel, classifier inference.Classifier, segment nlp.SegmentFunc) *Detector {
	if segment == nil {
		segment = nlp.Sentences
	}
	return &Detector{
		perplexity: perplexity,
		classifier: classifier,
		segment:    segment,
	}
}

// Detect scores text. Empty or whitespace-only input returns a zero
// probability with null metrics; otherwise all three signals are combined by
// fixed weights. Detection holds no mutable state and is safe to call
// concurrently.
func (d *Detector) Detect(ctx context.Context, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return &Result{
			Probability: 0,
			Confidence:  "Low",
			Method:      methodName,
		}, nil
	}

	perplexity, err := d.perplexity.Perplexity(ctx, text)
	if err != nil {
		return nil, err
	}

	burstiness := nlp.LengthVariance(d.segment(text))

	classifierScore := neutralClassifierScore
	if d.classifier != nil {
		score, err := d.classifier.ClassifyAI(ctx, text)
		if err != nil {
			logger.Warn("Classifier unavailable, substituting neutral score", zap.Error(err))
		} else {
			classifierScore = score
		}
	}

	// Lower perplexity and lower burstiness both indicate machine text, so
	// both normalizations invert onto [0,1].
	perplexityScore := clamp01((perplexityCeiling - perplexity) / perplexityRange)
	burstinessScore := clamp01((burstinessCeiling - burstiness) / burstinessRange)

	probability := (perplexityWeight*perplexityScore +
		burstinessWeight*burstinessScore +
		classifierWeight*classifierScore) * 100

	confidence := "Low"
	switch {
	case probability > 70:
		confidence = "High"
	case probability > 40:
		confidence = "Moderate"
	}

	logger.Debug("AI detection completed",
		zap.Float64("probability", probability),
		zap.String("confidence", confidence),
		zap.Float64("perplexity", perplexity),
		zap.Float64("burstiness", burstiness),
	)

	roundedPerplexity := round2(perplexity)
	roundedBurstiness := round2(burstiness)

	return &Result{
		Probability: round2(probability),
		Confidence:  confidence,
		Perplexity:  &roundedPerplexity,
		Burstiness:  &roundedBurstiness,
		Method:      methodName,
		Details: &ComponentScores{
			PerplexityScore: round2(perplexityScore * 100),
			BurstinessScore: round2(burstinessScore * 100),
			ClassifierScore: round2(classifierScore * 100),
		},
	}, nil
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DetectionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jasper_detection_duration_seconds",
			Help:    "Detection processing duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"kind"},
	)

	DetectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jasper_detections_total",
			Help: "Total number of detection requests processed",
		},
		[]string{"kind", "status"},
	)

	PlagiarismScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jasper_plagiarism_score",
			Help:    "Plagiarism scores returned to callers",
			Buckets: []float64{5, 10, 25, 50, 75, 90, 100},
		},
	)

	AIProbability = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jasper_ai_probability",
			Help:    "AI probabilities returned to callers",
			Buckets: []float64{10, 25, 40, 55, 70, 85, 100},
		},
	)

	CorpusDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jasper_corpus_documents",
			Help: "Documents in the plagiarism corpus",
		},
	)

	CorpusVectors = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jasper_corpus_vectors",
			Help: "Sentence vectors in the plagiarism index",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jasper_cache_hits_total",
			Help: "Total detection cache hits",
		},
		[]string{"kind"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jasper_cache_misses_total",
			Help: "Total detection cache misses",
		},
		[]string{"kind"},
	)

	DocumentsIndexed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jasper_documents_indexed_total",
			Help: "Total documents added to the corpus",
		},
	)
)

func Init() {
	prometheus.MustRegister(DetectionDuration)
	prometheus.MustRegister(DetectionsTotal)
	prometheus.MustRegister(PlagiarismScore)
	prometheus.MustRegister(AIProbability)
	prometheus.MustRegister(CorpusDocuments)
	prometheus.MustRegister(CorpusVectors)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(DocumentsIndexed)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

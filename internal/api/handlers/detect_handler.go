package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jasper-ai/backend/internal/aidetect"
	"github.com/jasper-ai/backend/internal/cache/redis"
	"github.com/jasper-ai/backend/internal/metrics"
	"github.com/jasper-ai/backend/internal/plagiarism"
	"github.com/jasper-ai/backend/internal/storage/models"
	"github.com/jasper-ai/backend/internal/storage/sqlite"
	"github.com/jasper-ai/backend/pkg/logger"
	"github.com/jasper-ai/backend/pkg/utils"
)

type detectRequest struct {
	Text string `json:"text"`
}

// HybridResult bundles both detectors' outputs for the hybrid endpoint.
type HybridResult struct {
	Plagiarism  *plagiarism.Result `json:"plagiarism"`
	AIDetection *aidetect.Result   `json:"ai_detection"`
}

type DetectHandler struct {
	plagiarism *plagiarism.Detector
	ai         *aidetect.Detector
	history    *sqlite.Client
	cache      *redis.Client
}

// NewDetectHandler wires the detectors with history storage and an optional
// result cache (pass nil to disable caching).
func NewDetectHandler(p *plagiarism.Detector, a *aidetect.Detector, history *sqlite.Client, cache *redis.Client) *DetectHandler {
	return &DetectHandler{
		plagiarism: p,
		ai:         a,
		history:    history,
		cache:      cache,
	}
}

func (h *DetectHandler) HandlePlagiarism(c *fiber.Ctx) error {
	var req detectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	start := time.Now()
	textHash := utils.HashString(req.Text)

	if h.cache != nil {
		var cached plagiarism.Result
		hit, err := h.cache.GetResult(c.Context(), "plagiarism", textHash, &cached)
		if err != nil {
			logger.Warn("Cache lookup failed", zap.Error(err))
		}
		if hit {
			metrics.CacheHits.WithLabelValues("plagiarism").Inc()
			return c.JSON(&cached)
		}
		metrics.CacheMisses.WithLabelValues("plagiarism").Inc()
	}

	result, err := h.plagiarism.Detect(c.Context(), req.Text)
	if err != nil {
		metrics.DetectionsTotal.WithLabelValues("plagiarism", "error").Inc()
		logger.Error("Plagiarism detection failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to run plagiarism detection",
		})
	}

	latency := int(time.Since(start).Milliseconds())
	metrics.DetectionDuration.WithLabelValues("plagiarism").Observe(time.Since(start).Seconds())
	metrics.DetectionsTotal.WithLabelValues("plagiarism", "ok").Inc()
	metrics.PlagiarismScore.Observe(result.Score)

	h.record("plagiarism", textHash, len(req.Text), result.Score, result.Level, latency)

	if h.cache != nil {
		if err := h.cache.SetResult(c.Context(), "plagiarism", textHash, result); err != nil {
			logger.Warn("Failed to cache result", zap.Error(err))
		}
	}

	return c.JSON(result)
}

func (h *DetectHandler) HandleAI(c *fiber.Ctx) error {
	var req detectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	start := time.Now()
	textHash := utils.HashString(req.Text)

	if h.cache != nil {
		var cached aidetect.Result
		hit, err := h.cache.GetResult(c.Context(), "ai", textHash, &cached)
		if err != nil {
			logger.Warn("Cache lookup failed", zap.Error(err))
		}
		if hit {
			metrics.CacheHits.WithLabelValues("ai").Inc()
			return c.JSON(&cached)
		}
		metrics.CacheMisses.WithLabelValues("ai").Inc()
	}

	result, err := h.ai.Detect(c.Context(), req.Text)
	if err != nil {
		metrics.DetectionsTotal.WithLabelValues("ai", "error").Inc()
		logger.Error("AI detection failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to run AI detection",
		})
	}

	latency := int(time.Since(start).Milliseconds())
	metrics.DetectionDuration.WithLabelValues("ai").Observe(time.Since(start).Seconds())
	metrics.DetectionsTotal.WithLabelValues("ai", "ok").Inc()
	metrics.AIProbability.Observe(result.Probability)

	h.record("ai", textHash, len(req.Text), result.Probability, result.Confidence, latency)

	if h.cache != nil {
		if err := h.cache.SetResult(c.Context(), "ai", textHash, result); err != nil {
			logger.Warn("Failed to cache result", zap.Error(err))
		}
	}

	return c.JSON(result)
}

func (h *DetectHandler) HandleHybrid(c *fiber.Ctx) error {
	var req detectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	start := time.Now()

	plagResult, err := h.plagiarism.Detect(c.Context(), req.Text)
	if err != nil {
		metrics.DetectionsTotal.WithLabelValues("hybrid", "error").Inc()
		logger.Error("Plagiarism detection failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to run plagiarism detection",
		})
	}

	aiResult, err := h.ai.Detect(c.Context(), req.Text)
	if err != nil {
		metrics.DetectionsTotal.WithLabelValues("hybrid", "error").Inc()
		logger.Error("AI detection failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to run AI detection",
		})
	}

	latency := int(time.Since(start).Milliseconds())
	metrics.DetectionDuration.WithLabelValues("hybrid").Observe(time.Since(start).Seconds())
	metrics.DetectionsTotal.WithLabelValues("hybrid", "ok").Inc()

	h.record("hybrid", utils.HashString(req.Text), len(req.Text), plagResult.Score, plagResult.Level, latency)

	return c.JSON(HybridResult{
		Plagiarism:  plagResult,
		AIDetection: aiResult,
	})
}

func (h *DetectHandler) HandleHistory(c *fiber.Ctx) error {
	kind := c.Query("kind")
	limit := c.QueryInt("limit", 50)

	records, err := h.history.ListDetections(kind, limit)
	if err != nil {
		logger.Error("Failed to list detection history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load detection history",
		})
	}

	if records == nil {
		records = []models.DetectionRecord{}
	}

	return c.JSON(fiber.Map{
		"history": records,
	})
}

// record stores the detection in history; failures are logged, never
// surfaced, since history is auxiliary to the detection itself.
func (h *DetectHandler) record(kind, textHash string, textLength int, score float64, level string, latencyMS int) {
	if h.history == nil {
		return
	}

	err := h.history.InsertDetection(&models.DetectionRecord{
		ID:         uuid.New().String(),
		Kind:       kind,
		TextHash:   textHash,
		TextLength: textLength,
		Score:      score,
		Level:      level,
		LatencyMS:  latencyMS,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		logger.Warn("Failed to record detection history", zap.Error(err))
	}
}

package handlers

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jasper-ai/backend/internal/cache/redis"
	"github.com/jasper-ai/backend/internal/corpus"
	"github.com/jasper-ai/backend/internal/metrics"
	"github.com/jasper-ai/backend/pkg/logger"
	"github.com/jasper-ai/backend/pkg/utils"
)

type addDocumentRequest struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	HTMLContent string `json:"html_content"`
	Source      string `json:"source"`
	URL         string `json:"url"`
}

type CorpusHandler struct {
	store *corpus.Store
	cache *redis.Client
}

func NewCorpusHandler(store *corpus.Store, cache *redis.Client) *CorpusHandler {
	return &CorpusHandler{store: store, cache: cache}
}

func (h *CorpusHandler) HandleStats(c *fiber.Ctx) error {
	return c.JSON(h.store.Stats())
}

// HandleAddDocument indexes a new corpus document and persists the corpus
// before replying. Plagiarism scores depend on corpus contents, so all cached
// detection results are invalidated afterwards.
func (h *CorpusHandler) HandleAddDocument(c *fiber.Ctx) error {
	var req addDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	text := req.Text
	if text == "" && req.HTMLContent != "" {
		extracted, err := extractHTMLText(req.HTMLContent)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Failed to parse html_content",
			})
		}
		text = extracted
	}

	if strings.TrimSpace(text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Either text or html_content is required",
		})
	}

	id := req.ID
	if id == "" {
		if req.URL != "" {
			id = utils.HashString(req.Title + req.URL)
		} else {
			id = uuid.New().String()
		}
	}

	if err := h.store.AddDocument(c.Context(), id, req.Title, text, req.Source, req.URL); err != nil {
		if errors.Is(err, corpus.ErrDuplicateID) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Document already indexed",
				"id":    id,
			})
		}
		logger.Error("Failed to add document", zap.String("id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to add document to corpus",
		})
	}

	if err := h.store.Persist(c.Context()); err != nil {
		logger.Error("Failed to persist corpus", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Document was indexed but persisting the corpus failed",
		})
	}

	stats := h.store.Stats()
	metrics.DocumentsIndexed.Inc()
	metrics.CorpusDocuments.Set(float64(stats.DocumentCount))
	metrics.CorpusVectors.Set(float64(stats.VectorCount))

	if h.cache != nil {
		if err := h.cache.InvalidateAll(c.Context()); err != nil {
			logger.Warn("Failed to invalidate detection cache", zap.Error(err))
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":             id,
		"document_count": stats.DocumentCount,
		"vector_count":   stats.VectorCount,
	})
}

// extractHTMLText strips markup and boilerplate tags, returning readable text.
func extractHTMLText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, header, footer, noscript").Remove()

	text := doc.Find("body").Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}

	return strings.Join(strings.Fields(text), " "), nil
}

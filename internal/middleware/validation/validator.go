package validation

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Config struct {
	MaxTextLength       int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware enforces content types and bounds the analyzed text size before
// any model call is made. Detection of empty text is a detector concern (it
// returns a well-defined zero result), so only missing fields are rejected.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxTextLength == 0 {
		cfg.MaxTextLength = 100000
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json", "multipart/form-data"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodPost || c.Method() == fiber.MethodPut {
			contentType := c.Get("Content-Type")
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}
		}

		path := c.Path()

		if strings.Contains(path, "/api/v1/detect/") && c.Method() == fiber.MethodPost {
			var req struct {
				Text *string `json:"text"`
			}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			if req.Text == nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Text is required and must be a string",
				})
			}

			if len(*req.Text) > cfg.MaxTextLength {
				cfg.Logger.Warn("Oversized detection request rejected",
					zap.String("ip", c.IP()),
					zap.Int("length", len(*req.Text)),
				)
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Text exceeds maximum length",
				})
			}
		}

		if strings.Contains(path, "/api/v1/documents") && c.Method() == fiber.MethodPost {
			var req struct {
				Title string `json:"title"`
			}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			if strings.TrimSpace(req.Title) == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Title is required",
				})
			}
		}

		return c.Next()
	}
}

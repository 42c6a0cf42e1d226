package handlers

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/jasper-ai/backend/pkg/logger"
)

const maxUploadBytes = 20 << 20 // 20 MiB

type UploadHandler struct{}

func NewUploadHandler() *UploadHandler {
	return &UploadHandler{}
}

// HandleExtract accepts a multipart file upload and returns the plain text it
// contains, ready to be submitted to a detection endpoint. PDF and HTML are
// parsed; anything else is treated as UTF-8 text.
func (h *UploadHandler) HandleExtract(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A file field is required",
		})
	}

	if fileHeader.Size > maxUploadBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": "File exceeds maximum upload size",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Error("Failed to open uploaded file", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read uploaded file",
		})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		logger.Error("Failed to read uploaded file", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read uploaded file",
		})
	}

	var text string
	switch strings.ToLower(filepath.Ext(fileHeader.Filename)) {
	case ".pdf":
		text, err = extractPDFText(data)
	case ".html", ".htm":
		text, err = extractHTMLText(string(data))
	default:
		text = string(data)
	}
	if err != nil {
		logger.Warn("Failed to extract text from upload",
			zap.String("filename", fileHeader.Filename),
			zap.Error(err),
		)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Failed to extract text from file",
		})
	}

	return c.JSON(fiber.Map{
		"text":     text,
		"filename": fileHeader.Filename,
		"length":   len(text),
	})
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}

	return buf.String(), nil
}

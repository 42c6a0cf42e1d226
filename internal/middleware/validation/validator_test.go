package validation

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(cfg Config) *fiber.App {
	app := fiber.New()
	app.Use(Middleware(cfg))

	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Post("/api/v1/detect/plagiarism", ok)
	app.Post("/api/v1/documents", ok)

	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestDetectRequiresText(t *testing.T) {
	app := newTestApp(Config{})

	resp := postJSON(t, app, "/api/v1/detect/plagiarism", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestDetectAllowsEmptyText(t *testing.T) {
	// Empty text is valid input: the detector returns a zero result for it.
	app := newTestApp(Config{})

	resp := postJSON(t, app, "/api/v1/detect/plagiarism", `{"text": ""}`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestDetectRejectsOversizedText(t *testing.T) {
	app := newTestApp(Config{MaxTextLength: 10})

	resp := postJSON(t, app, "/api/v1/detect/plagiarism", `{"text": "`+strings.Repeat("x", 50)+`"}`)
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestDetectRejectsMalformedJSON(t *testing.T) {
	app := newTestApp(Config{})

	resp := postJSON(t, app, "/api/v1/detect/plagiarism", `{not json`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestDocumentsRequireTitle(t *testing.T) {
	app := newTestApp(Config{})

	resp := postJSON(t, app, "/api/v1/documents", `{"text": "body without title"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, app, "/api/v1/documents", `{"title": "Doc", "text": "body"}`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRejectsUnsupportedContentType(t *testing.T) {
	app := newTestApp(Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/detect/plagiarism", bytes.NewBufferString("text=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
}

package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jasper-ai/backend/pkg/circuitbreaker"
	"github.com/jasper-ai/backend/pkg/logger"
	"github.com/jasper-ai/backend/pkg/retry"
)

// Classifier estimates the probability (0-1) that text is AI-generated.
// It is an optional capability: the detector substitutes a neutral score
// when no classifier is configured.
type Classifier interface {
	ClassifyAI(ctx context.Context, text string) (float64, error)
}

// HTTPClassifier calls a local sequence-classifier sidecar over a single
// JSON POST route.
type HTTPClassifier struct {
	endpoint    string
	httpClient  *http.Client
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewHTTPClassifier(endpoint string, timeoutSec int) *HTTPClassifier {
	if timeoutSec <= 0 {
		timeoutSec = 15
	}

	cb := circuitbreaker.NewCircuitBreaker("classifier", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	logger.Info("Classifier client initialized", zap.String("endpoint", endpoint))

	return &HTTPClassifier{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSec) * time.Second,
		},
		cb:          cb,
		retryConfig: retry.DefaultConfig(),
	}
}

func (c *HTTPClassifier) ClassifyAI(ctx context.Context, text string) (float64, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal classifier request: %w", err)
	}

	var probability float64

	err = c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("failed to build classifier request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("classifier request failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("classifier returned status %d", resp.StatusCode)
			}

			var out struct {
				AIProbability float64 `json:"ai_probability"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return fmt.Errorf("failed to decode classifier response: %w", err)
			}

			probability = out.AIProbability
			return nil
		})
	})
	if err != nil {
		return 0, err
	}

	if probability < 0 || probability > 1 {
		return 0, fmt.Errorf("classifier returned probability %f outside [0,1]", probability)
	}

	return probability, nil
}

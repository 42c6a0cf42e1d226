// Package inference wraps the local OpenAI-compatible model server behind the
// capabilities the detectors consume: sentence embeddings and token-level
// perplexity. All calls go through retry and a circuit breaker.
package inference

import (
	"context"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/jasper-ai/backend/pkg/circuitbreaker"
	"github.com/jasper-ai/backend/pkg/logger"
	"github.com/jasper-ai/backend/pkg/retry"
)

// Embedder converts texts to fixed-dimension vectors, order-preserving and
// stateless across calls.
type Embedder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// PerplexityModel scores text predictability under a causal language model.
type PerplexityModel interface {
	Perplexity(ctx context.Context, text string) (float64, error)
}

type Client struct {
	client          *openai.Client
	embeddingModel  string
	embeddingDim    int
	perplexityModel string
	maxTextChars    int
	timeout         time.Duration
	cb              *circuitbreaker.CircuitBreaker
	retryConfig     retry.Config
}

func NewClient(baseURL, apiKey, embeddingModel string, embeddingDim int, perplexityModel string, maxTextChars, timeoutSec int) *Client {
	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = baseURL
	client := openai.NewClientWithConfig(clientConfig)

	cb := circuitbreaker.NewCircuitBreaker("inference", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	if maxTextChars <= 0 {
		maxTextChars = 4096
	}
	if timeoutSec <= 0 {
		timeoutSec = 30
	}

	logger.Info("Inference client initialized",
		zap.String("base_url", baseURL),
		zap.String("embedding_model", embeddingModel),
		zap.Int("embedding_dim", embeddingDim),
		zap.String("perplexity_model", perplexityModel),
	)

	return &Client{
		client:          client,
		embeddingModel:  embeddingModel,
		embeddingDim:    embeddingDim,
		perplexityModel: perplexityModel,
		maxTextChars:    maxTextChars,
		timeout:         time.Duration(timeoutSec) * time.Second,
		cb:              cb,
		retryConfig:     retryConfig,
	}
}

// Verify probes the embedding model and checks the served dimension. Every
// downstream score depends on a consistent embedding space, so a missing
// model or a dimension mismatch aborts startup.
func (c *Client) Verify(ctx context.Context) error {
	vectors, err := c.Encode(ctx, []string{"embedding dimension probe"})
	if err != nil {
		return fmt.Errorf("embedding model %q unavailable: %w", c.embeddingModel, err)
	}
	if len(vectors) != 1 || len(vectors[0]) != c.embeddingDim {
		return fmt.Errorf("embedding model %q serves dimension %d, expected %d; a persisted index built with another model is invalid",
			c.embeddingModel, len(vectors[0]), c.embeddingDim)
	}
	return nil
}

func (c *Client) Dimension() int {
	return c.embeddingDim
}

// Encode embeds texts in batches of 100, preserving input order.
func (c *Client) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	embeddings := make([][]float32, 0, len(texts))

	batchSize := 100
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := texts[i:end]

		err := c.cb.Execute(ctx, func() error {
			return retry.Do(ctx, c.retryConfig, func() error {
				resp, err := c.client.CreateEmbeddings(
					ctx,
					openai.EmbeddingRequest{
						Input: batch,
						Model: openai.EmbeddingModel(c.embeddingModel),
					},
				)
				if err != nil {
					return fmt.Errorf("failed to generate embeddings: %w", err)
				}
				if len(resp.Data) != len(batch) {
					return fmt.Errorf("embedding count mismatch: got %d, expected %d", len(resp.Data), len(batch))
				}

				ordered := make([][]float32, len(batch))
				for _, data := range resp.Data {
					if data.Index < 0 || data.Index >= len(batch) {
						return fmt.Errorf("embedding index %d out of range", data.Index)
					}
					vec := make([]float32, len(data.Embedding))
					copy(vec, data.Embedding)
					ordered[data.Index] = vec
				}
				embeddings = append(embeddings, ordered...)

				return nil
			})
		})
		if err != nil {
			return nil, err
		}
	}

	logger.Debug("Embeddings generated", zap.Int("count", len(embeddings)))

	return embeddings, nil
}

// Perplexity runs the causal model over the text (truncated to the configured
// budget) with echoed logprobs and returns exp of the mean token negative
// log-likelihood. The first token carries no conditional logprob and is
// skipped; a text yielding no scorable tokens reports perplexity 0.
func (c *Client) Perplexity(ctx context.Context, text string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	truncated := truncateRunes(text, c.maxTextChars)

	var perplexity float64

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateCompletion(
				ctx,
				openai.CompletionRequest{
					Model:     c.perplexityModel,
					Prompt:    truncated,
					MaxTokens: 1,
					Echo:      true,
					LogProbs:  1,
				},
			)
			if err != nil {
				return fmt.Errorf("failed to score text: %w", err)
			}
			if len(resp.Choices) == 0 || len(resp.Choices[0].LogProbs.TokenLogprobs) == 0 {
				return fmt.Errorf("model %q returned no logprobs", c.perplexityModel)
			}

			logprobs := resp.Choices[0].LogProbs.TokenLogprobs
			promptTokens := len(resp.Choices[0].LogProbs.Tokens)
			if resp.Usage.CompletionTokens > 0 && promptTokens > resp.Usage.CompletionTokens {
				// Drop the generated continuation; only echoed prompt
				// tokens contribute to the score.
				promptTokens -= resp.Usage.CompletionTokens
				logprobs = logprobs[:promptTokens]
			}

			var sum float64
			var n int
			for i, lp := range logprobs {
				if i == 0 {
					continue
				}
				sum += float64(lp)
				n++
			}

			if n == 0 {
				perplexity = 0
				return nil
			}

			perplexity = math.Exp(-sum / float64(n))
			return nil
		})
	})
	if err != nil {
		return 0, err
	}

	logger.Debug("Perplexity computed",
		zap.Float64("perplexity", perplexity),
		zap.Int("chars", len(truncated)),
	)

	return perplexity, nil
}

func truncateRunes(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/docusage-ai/search-platform/pkg/config"
	apperrors "github.com/docusage-ai/search-platform/pkg/errors"
	"github.com/docusage-ai/search-platform/pkg/metrics"
	"github.com/docusage-ai/search-platform/pkg/resilience"
)

const defaultTimeout = 30 * time.Second

// OpenAIGateway calls an OpenAI-compatible /embeddings endpoint. Works
// against api.openai.com or any compatible server (Azure, local).
type OpenAIGateway struct {
	client  *http.Client
	breaker *resilience.Breaker
	logger  *slog.Logger
	metrics *metrics.Metrics

	baseURL   string
	apiKey    string
	model     string
	dimension int
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIGateway builds a gateway from config. The API key is required;
// without it Embed always returns ErrEmbeddingUnavailable, matching the
// no-model-configured degradation path.
func NewOpenAIGateway(cfg config.EmbeddingConfig, m *metrics.Metrics) *OpenAIGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OpenAIGateway{
		client:    &http.Client{Timeout: timeout},
		breaker:   resilience.NewBreaker("embedding", resilience.BreakerConfig{}),
		logger:    slog.Default().With("component", "embedding"),
		metrics:   m,
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		dimension: cfg.Dimension,
	}
}

// Dimension returns the configured vector dimension.
func (g *OpenAIGateway) Dimension() int {
	return g.dimension
}

// Embed requests one embedding and normalizes it to unit length.
func (g *OpenAIGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("%w: no API key configured", apperrors.ErrEmbeddingUnavailable)
	}

	var vec []float32
	err := g.breaker.Do(func() error {
		start := time.Now()
		v, err := g.request(ctx, text)
		if g.metrics != nil {
			g.metrics.EmbeddingLatency.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			return err
		}
		vec = v
		return nil
	})
	if g.metrics != nil {
		g.metrics.CircuitBreakerState.WithLabelValues("embedding").Set(float64(g.breaker.State()))
	}
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrEmbeddingUnavailable, err)
		}
		return nil, err
	}
	return Normalize(vec), nil
}

func (g *OpenAIGateway) request(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: g.model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("marshaling embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrEmbeddingTimeout, err)
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("reading embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		g.logger.Warn("embedding provider error", "status", resp.StatusCode, "body_size", len(raw))
		return nil, fmt.Errorf("%w: provider returned %d", apperrors.ErrEmbeddingUnavailable, resp.StatusCode)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decoding embedding response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrEmbeddingUnavailable, parsed.Error.Message)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("%w: empty response", apperrors.ErrEmbeddingUnavailable)
	}
	vec := parsed.Data[0].Embedding
	if g.dimension > 0 && len(vec) != g.dimension {
		return nil, fmt.Errorf("%w: provider returned %d, expected %d",
			apperrors.ErrDimensionMismatch, len(vec), g.dimension)
	}
	return vec, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

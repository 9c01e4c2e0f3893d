package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medical-rag-chatbot/internal/config"
	"medical-rag-chatbot/internal/logger"
	"medical-rag-chatbot/internal/telemetry"
	"medical-rag-chatbot/utils"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

const (
	generationTemperature = 0.2
	maxOutputTokens       = 256
)

// GeminiClient generates answers with a Gemini model. Calls pass through a
// rate limiter and a circuit breaker and are never retried.
type GeminiClient struct {
	client      *genai.Client
	model       string
	timeout     time.Duration
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
	metrics     *telemetry.Metrics
}

func NewGeminiClient(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (*GeminiClient, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("missing GEMINI_API_KEY for generation")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	// RPM limit with some buffer
	burst := max(cfg.LLMRPM/10, 1)
	rateLimiter := rate.NewLimiter(rate.Limit(float64(cfg.LLMRPM)*0.9/60.0), burst)

	return &GeminiClient{
		client:      client,
		model:       cfg.LLMModel,
		timeout:     cfg.LLMTimeout,
		breaker:     newBreaker("GeminiAPI", metrics),
		rateLimiter: rateLimiter,
		metrics:     metrics,
	}, nil
}

func newBreaker(name string, metrics *telemetry.Metrics) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			metrics.RecordCircuitBreakerState(name, to.String())
			if to == gobreaker.StateOpen {
				logger.Error("Circuit breaker opened, LLM service degraded", "breaker", name, "from", from.String())
				return
			}
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// Generate sends prompt to the model and returns the generated text.
func (gc *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate_content")
	defer span.End()

	span.SetAttributes(
		attribute.String("gemini.model", gc.model),
		attribute.Int("gemini.prompt_chars", len(prompt)),
	)

	if gc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = utils.WithCustomTimeout(ctx, gc.timeout)
		defer cancel()
	}

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return "", err
	}

	start := time.Now()
	result, err := gc.breaker.Execute(func() (interface{}, error) {
		model := gc.client.GenerativeModel(gc.model)
		model.SetTemperature(generationTemperature)
		model.SetMaxOutputTokens(maxOutputTokens)

		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return nil, err
		}
		if resp.UsageMetadata != nil {
			tokens := int(resp.UsageMetadata.TotalTokenCount)
			gc.metrics.RecordTokensUsed(int64(tokens), gc.model)
			span.SetAttributes(attribute.Int("gemini.actual_tokens", tokens))
		}

		return responseText(resp)
	})
	gc.metrics.RecordLLMRequest(config.LLMProviderGemini, gc.model, time.Since(start).Seconds(), err == nil)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
			return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
		}
		span.SetAttributes(
			attribute.Bool("gemini.error", true),
			attribute.String("gemini.error_message", err.Error()),
		)
		return "", err
	}

	span.SetAttributes(attribute.Bool("gemini.success", true))
	return result.(string), nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no candidates in response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	answer := strings.TrimSpace(sb.String())
	if answer == "" {
		return "", errors.New("empty response from model")
	}
	return answer, nil
}

// Close the client
func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}

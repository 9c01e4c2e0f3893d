package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"medical-rag-chatbot/internal/config"
	"medical-rag-chatbot/internal/telemetry"

	"github.com/sony/gobreaker"
)

type InferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters InferenceParameters `json:"parameters"`
}

type InferenceParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type InferenceResult struct {
	GeneratedText string `json:"generated_text"`
}

type inferenceError struct {
	Error string `json:"error"`
}

// InferenceClient calls a hosted text-generation endpoint, one POST per
// prompt, authenticated with a bearer token.
type InferenceClient struct {
	APIURL     string
	Token      string
	HTTPClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	metrics    *telemetry.Metrics
}

func NewInferenceClient(apiURL, token string, timeout time.Duration, metrics *telemetry.Metrics) *InferenceClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &InferenceClient{
		APIURL: apiURL,
		Token:  token,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		breaker: newBreaker("InferenceAPI", metrics),
		metrics: metrics,
	}
}

// Generate posts prompt and returns the first generated text.
func (ic *InferenceClient) Generate(ctx context.Context, prompt string) (string, error) {
	request := InferenceRequest{
		Inputs: prompt,
		Parameters: InferenceParameters{
			MaxNewTokens:   maxOutputTokens,
			Temperature:    generationTemperature,
			ReturnFullText: false,
		},
	}

	start := time.Now()
	result, err := ic.breaker.Execute(func() (interface{}, error) {
		return ic.makeRequest(ctx, request)
	})
	ic.metrics.RecordLLMRequest(config.LLMProviderHuggingFace, ic.APIURL, time.Since(start).Seconds(), err == nil)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
		}
		return "", err
	}
	return result.(string), nil
}

func (ic *InferenceClient) makeRequest(ctx context.Context, request InferenceRequest) (string, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ic.APIURL, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ic.Token)

	resp, err := ic.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr inferenceError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return "", fmt.Errorf("API error: %s (status: %d)", apiErr.Error, resp.StatusCode)
		}
		return "", fmt.Errorf("API error: status %d", resp.StatusCode)
	}

	var results []InferenceResult
	if err := json.Unmarshal(body, &results); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(results) == 0 {
		return "", errors.New("no generated text in response")
	}

	answer := strings.TrimSpace(results[0].GeneratedText)
	if answer == "" {
		return "", errors.New("empty response from model")
	}
	return answer, nil
}

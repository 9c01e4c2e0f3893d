package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Answer outcomes recorded by RecordAnswer
const (
	OutcomeAnswered  = "answered"
	OutcomeNoContext = "no_context"
	OutcomeError     = "error"
)

// Metrics holds all application metrics. A nil *Metrics records nothing.
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	AnswersTotal        metric.Int64Counter
	LLMDuration         metric.Float64Histogram
	TokensUsed          metric.Int64Counter
	IngestDocuments     metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("medical-rag-chatbot")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	answersTotal, err := meter.Int64Counter(
		"rag.answers.total",
		metric.WithDescription("Questions answered, by outcome"),
	)
	if err != nil {
		return nil, err
	}

	llmDuration, err := meter.Float64Histogram(
		"llm.request.duration",
		metric.WithDescription("LLM generate call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tokensUsed, err := meter.Int64Counter(
		"gemini.tokens.used",
		metric.WithDescription("Total Gemini tokens used"),
	)
	if err != nil {
		return nil, err
	}

	ingestDocuments, err := meter.Int64Counter(
		"ingest.documents.total",
		metric.WithDescription("Documents seen by ingestion, by status"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		AnswersTotal:        answersTotal,
		LLMDuration:         llmDuration,
		TokensUsed:          tokensUsed,
		IngestDocuments:     ingestDocuments,
		CircuitBreakerState: circuitBreakerState,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordAnswer counts one Ask call by outcome.
func (m *Metrics) RecordAnswer(outcome string) {
	if m == nil {
		return
	}
	m.AnswersTotal.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordLLMRequest records the duration of one generate call
func (m *Metrics) RecordLLMRequest(provider, model string, duration float64, success bool) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
		attribute.Bool("llm.success", success),
	}

	m.LLMDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordTokensUsed records Gemini token usage
func (m *Metrics) RecordTokensUsed(tokens int64, model string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("gemini.model", model),
		attribute.String("service", "gemini"),
	}

	m.TokensUsed.Add(context.Background(), tokens, metric.WithAttributes(attrs...))
}

// RecordIngestDocument counts a document as indexed or skipped
func (m *Metrics) RecordIngestDocument(status string) {
	if m == nil {
		return
	}
	m.IngestDocuments.Add(context.Background(), 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetrics(t *testing.T) {
	m, err := InitMetrics()
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.NotPanics(t, func() {
		m.RecordRequest("POST", "/", "200", 0.12)
		m.RecordAnswer(OutcomeNoContext)
		m.RecordLLMRequest("gemini", "gemini-2.0-flash", 0.8, true)
		m.RecordTokensUsed(42, "gemini-2.0-flash")
		m.RecordIngestDocument("indexed")
		m.RecordCircuitBreakerState("gemini", "open")
	})
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("GET", "/", "200", 0.01)
		m.RecordAnswer(OutcomeAnswered)
		m.RecordIngestDocument("skipped")
		m.RecordCircuitBreakerState("gemini", "closed")
	})
}

func TestInitTracer_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracer("medical-rag-chatbot", "", "test")
	require.NoError(t, err)
	assert.NotPanics(t, shutdown)
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"medical-rag-chatbot/internal/ai"
	"medical-rag-chatbot/internal/logger"
	"medical-rag-chatbot/internal/telemetry"
	"medical-rag-chatbot/internal/vectorstore"
	"medical-rag-chatbot/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

type RetrieverOptions struct {
	TopK                int
	SimilarityThreshold float64
}

// Retriever answers a question from the nearest indexed chunks. It holds
// no per-request state and is shared by all handlers.
type Retriever struct {
	embedder  ai.Embedder
	index     vectorstore.Index
	generator ai.Generator
	opts      RetrieverOptions
	metrics   *telemetry.Metrics
	log       *slog.Logger
}

func NewRetriever(embedder ai.Embedder, index vectorstore.Index, generator ai.Generator, opts RetrieverOptions, metrics *telemetry.Metrics) *Retriever {
	if opts.TopK < 1 {
		opts.TopK = 1
	}
	return &Retriever{
		embedder:  embedder,
		index:     index,
		generator: generator,
		opts:      opts,
		metrics:   metrics,
		log:       logger.Get(),
	}
}

// IndexSize returns the number of entries the retriever searches.
func (r *Retriever) IndexSize() int {
	return r.index.Len()
}

// Ask embeds the question, retrieves context and generates an answer.
// When nothing relevant is found the answer is NoContextMessage and the
// generator is not called.
func (r *Retriever) Ask(ctx context.Context, question string) (*models.Answer, error) {
	start := time.Now()
	ctx, span := otel.Tracer("retriever").Start(ctx, "rag.ask")
	defer span.End()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	answer, err := r.ask(ctx, question)
	if err != nil {
		r.metrics.RecordAnswer(telemetry.OutcomeError)
		span.SetAttributes(attribute.Bool("rag.error", true))
		r.log.Error("Failed to answer question", "error", err)
		return nil, err
	}

	answer.Latency = time.Since(start)
	outcome := telemetry.OutcomeAnswered
	if answer.NoContext {
		outcome = telemetry.OutcomeNoContext
	}
	r.metrics.RecordAnswer(outcome)
	span.SetAttributes(
		attribute.Bool("rag.no_context", answer.NoContext),
		attribute.Int("rag.sources", len(answer.Sources)),
	)
	r.log.Info("Question answered", "outcome", outcome, "sources", len(answer.Sources), "latency_ms", answer.Latency.Milliseconds())
	return answer, nil
}

func (r *Retriever) ask(ctx context.Context, question string) (*models.Answer, error) {
	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}

	results, err := r.index.Search(ctx, vector, r.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearch, err)
	}
	results = r.filter(results)

	if len(results) == 0 {
		return &models.Answer{
			Question:  question,
			Text:      NoContextMessage,
			NoContext: true,
		}, nil
	}

	prompt := BuildPrompt(question, results)
	text, err := r.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	return &models.Answer{
		Question: question,
		Text:     text,
		Sources:  results,
		Prompt:   prompt,
	}, nil
}

// filter drops results below the similarity threshold. A zero threshold
// keeps everything.
func (r *Retriever) filter(results []models.SearchResult) []models.SearchResult {
	if r.opts.SimilarityThreshold <= 0 {
		return results
	}
	kept := results[:0:0]
	for _, res := range results {
		if res.Score >= r.opts.SimilarityThreshold {
			kept = append(kept, res)
		}
	}
	return kept
}

// Package rag composes grounded answers: it embeds a question, retrieves
// the nearest articles from the vector index, and asks a generative model to
// answer from that context only.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bull/news-rag-server/internal/storage"
)

// DefaultTopK is the number of neighbors retrieved per question.
const DefaultTopK = 5

// ErrAnswerGeneration wraps failures of the generative model so callers can
// tell them apart from retrieval failures.
var ErrAnswerGeneration = errors.New("failed to generate answer")

// QueryEmbedder embeds a single query string.
type QueryEmbedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// DocumentSearcher performs nearest-neighbor search over stored articles.
type DocumentSearcher interface {
	Search(ctx context.Context, queryVector []float32, limit int) ([]storage.RetrievedDocument, error)
}

// TextGenerator produces text from a single prompt string.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Source identifies one article used to ground an answer.
type Source struct {
	Title          string  `json:"title"`
	Source         string  `json:"source"`
	Link           string  `json:"link"`
	RelevanceScore float32 `json:"relevanceScore"`
}

// Answer is the composed result of one query.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Answerer orchestrates the retrieval-augmented query path. Each call is
// stateless with respect to prior turns; conversation history is recorded
// elsewhere and not fed back into the prompt.
type Answerer struct {
	embedder QueryEmbedder
	searcher DocumentSearcher
	model    TextGenerator
	topK     int
	logger   *slog.Logger
}

// NewAnswerer creates an Answerer. A topK of 0 selects DefaultTopK.
func NewAnswerer(embedder QueryEmbedder, searcher DocumentSearcher, model TextGenerator, topK int, logger *slog.Logger) *Answerer {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{
		embedder: embedder,
		searcher: searcher,
		model:    model,
		topK:     topK,
		logger:   logger,
	}
}

// AnswerQuery answers a question grounded in retrieved articles. Embedding
// and search failures propagate as retrieval failures; a generation failure
// is wrapped in ErrAnswerGeneration.
func (a *Answerer) AnswerQuery(ctx context.Context, question string) (*Answer, error) {
	queryVector, err := a.embedder.EmbedOne(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	docs, err := a.searcher.Search(ctx, queryVector, a.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve documents: %w", err)
	}
	a.logger.Info("retrieved articles", "question", question, "count", len(docs))

	prompt := buildPrompt(question, renderContext(docs))

	text, err := a.model.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnswerGeneration, err)
	}

	sources := make([]Source, len(docs))
	for i, doc := range docs {
		sources[i] = Source{
			Title:          doc.Title,
			Source:         doc.Source,
			Link:           doc.Link,
			RelevanceScore: doc.Score,
		}
	}

	return &Answer{Answer: text, Sources: sources}, nil
}

// renderContext emits one labeled block per retrieved document in ranked
// order, blocks separated by a blank line and a delimiter.
func renderContext(docs []storage.RetrievedDocument) string {
	blocks := make([]string, len(docs))
	for i, doc := range docs {
		blocks[i] = fmt.Sprintf("[Document %d]\nTitle: %s\nSource: %s\nContent: %s\n---",
			i+1, doc.Title, doc.Source, doc.Content)
	}
	return strings.Join(blocks, "\n\n")
}

// buildPrompt embeds the rendered context and the literal question into a
// single grounded instruction prompt.
func buildPrompt(question, contextBlock string) string {
	return fmt.Sprintf(`You are a helpful AI assistant that answers questions based on news articles.

CONTEXT (Retrieved News Articles):
%s

USER QUESTION: %s

INSTRUCTIONS:
- Answer the question based ONLY on the information provided in the context above
- If the context doesn't contain enough information to answer the question, say so
- Be concise and informative
- Cite which document(s) you're referencing when possible
- Do not make up information

ANSWER:`, contextBlock, question)
}

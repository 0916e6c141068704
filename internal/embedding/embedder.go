// Package embedding converts text into fixed-dimension vectors via an
// external embedding provider.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
)

const (
	// DefaultBatchSize keeps individual provider requests small enough to
	// stay under tokens-per-minute limits.
	DefaultBatchSize = 10

	// DefaultPacingDelay is inserted between consecutive batches so that
	// bulk ingestion does not trip the provider's requests-per-minute limit.
	DefaultPacingDelay = 1 * time.Second

	// requestTimeout bounds a single provider call.
	requestTimeout = 30 * time.Second
)

// ErrNoTexts indicates an embedding request with no input texts.
var ErrNoTexts = errors.New("no texts provided for embedding generation")

// Embedder generates embeddings through an OpenAI-compatible provider.
// Batched calls are issued strictly in sequence with a pacing delay, never
// concurrently; a failure in any batch aborts the whole call.
type Embedder struct {
	client      *Client
	batchSize   int
	pacingDelay time.Duration
}

// NewEmbedder creates an Embedder with the given client and batch size.
// A batchSize of 0 selects DefaultBatchSize.
func NewEmbedder(client *Client, batchSize int) *Embedder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Embedder{
		client:      client,
		batchSize:   batchSize,
		pacingDelay: DefaultPacingDelay,
	}
}

// EmbedMany generates one vector per input text, order-preserving. An empty
// input fails with ErrNoTexts; provider errors (including timeout) are
// wrapped and returned without retry.
func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrNoTexts
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := e.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model: openai.EmbeddingModel(e.client.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding provider returned %d vectors for %d texts", len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		embeddings[i] = toFloat32(data.Embedding)
	}
	return embeddings, nil
}

// EmbedOne embeds a single text.
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatched partitions texts into consecutive chunks of at most
// batchSize and embeds them one chunk at a time, concatenating results in
// input order. A batchSize of 0 selects the Embedder's configured size. The
// pacing delay runs between chunks, not after the last one. There is no
// partial-success return.
func (e *Embedder) EmbedBatched(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrNoTexts
	}
	if batchSize <= 0 {
		batchSize = e.batchSize
	}

	allEmbeddings := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += batchSize {
		end := min(i+batchSize, len(texts))

		embeddings, err := e.EmbedMany(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		allEmbeddings = append(allEmbeddings, embeddings...)

		if end < len(texts) {
			select {
			case <-time.After(e.pacingDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return allEmbeddings, nil
}

// toFloat32 converts the provider's float64 vectors to float32 for storage.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}

package domain

import (
	"context"
	"fmt"
)

// Embedder turns a synopsis into a vector. Only the catalog loader embeds; the API
// serves vectors already stored with each book.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes many texts in one provider call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// EmbeddingResult is one vector plus the tokens it cost.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult holds vectors in input order plus aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// EmbedAll vectorizes texts with a single batch call when e supports it and one Embed
// per text otherwise. The result always has exactly one vector per input text; a
// provider that answers with a different count yields ErrUpstream.
func EmbedAll(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	var res BatchEmbeddingResult

	if be, ok := e.(BatchEmbedder); ok {
		r, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}
		res = r
	} else {
		res.Embeddings = make([][]float32, len(texts))
		for i, text := range texts {
			r, err := e.Embed(ctx, text)
			if err != nil {
				return BatchEmbeddingResult{}, fmt.Errorf("embed text %d: %w", i, err)
			}
			res.Embeddings[i] = r.Embedding
			res.PromptTokens += r.PromptTokens
			res.TotalTokens += r.TotalTokens
		}
	}

	if len(res.Embeddings) != len(texts) {
		return BatchEmbeddingResult{}, fmt.Errorf("%w: got %d embeddings for %d texts",
			ErrUpstream, len(res.Embeddings), len(texts))
	}
	return res, nil
}

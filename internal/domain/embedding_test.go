package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	calls  int
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) (EmbeddingResult, error) {
	s.calls++
	return s.result, s.err
}

type stubBatchEmbedder struct {
	stubEmbedder
	batchResult BatchEmbeddingResult
	batchTexts  []string
}

func (s *stubBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	s.batchTexts = texts
	return s.batchResult, nil
}

func TestEmbedAll_Fallback(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2}, PromptTokens: 5, TotalTokens: 5}}

	res, err := EmbedAll(context.Background(), inner, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 Embed calls, got %d", inner.calls)
	}
	if len(res.Embeddings) != 3 || res.TotalTokens != 15 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestEmbedAll_FallbackError(t *testing.T) {
	innerErr := errors.New("provider down")
	inner := &stubEmbedder{err: innerErr}

	_, err := EmbedAll(context.Background(), inner, []string{"a"})
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}

func TestEmbedAll_NativeBatch(t *testing.T) {
	inner := &stubBatchEmbedder{batchResult: BatchEmbeddingResult{Embeddings: [][]float32{{1}, {2}}}}

	res, err := EmbedAll(context.Background(), inner, []string{"x", "y"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 0 {
		t.Errorf("single Embed should not be used, got %d calls", inner.calls)
	}
	if len(inner.batchTexts) != 2 || len(res.Embeddings) != 2 {
		t.Errorf("unexpected batch: texts=%v res=%+v", inner.batchTexts, res)
	}
}

func TestEmbedAll_CountMismatch(t *testing.T) {
	inner := &stubBatchEmbedder{batchResult: BatchEmbeddingResult{Embeddings: [][]float32{{1}}}}

	_, err := EmbedAll(context.Background(), inner, []string{"x", "y"})
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

func TestEmbedAll_Empty(t *testing.T) {
	res, err := EmbedAll(context.Background(), &stubEmbedder{}, nil)
	if err != nil || len(res.Embeddings) != 0 {
		t.Errorf("res = %+v, err = %v", res, err)
	}
}

func TestTitleNotFoundError(t *testing.T) {
	err := NewTitleNotFound("Dune")
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected ErrNotFound in chain")
	}
	var tnf *TitleNotFoundError
	if !errors.As(err, &tnf) || tnf.Title != "Dune" {
		t.Errorf("expected title echo, got %v", err)
	}
}

func TestPrincipalContext(t *testing.T) {
	if PrincipalFromContext(context.Background()) != nil {
		t.Error("expected nil principal on bare context")
	}
	ctx := ContextWithPrincipal(context.Background(), &Principal{Email: "a@b.it"})
	if p := PrincipalFromContext(ctx); p == nil || p.Email != "a@b.it" {
		t.Errorf("unexpected principal: %+v", p)
	}
}

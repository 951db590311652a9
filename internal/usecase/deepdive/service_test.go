package deepdive

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/shelfwise/internal/domain"
	"github.com/kailas-cloud/shelfwise/internal/domain/book"
	"github.com/kailas-cloud/shelfwise/internal/logger"
	"github.com/kailas-cloud/shelfwise/internal/metrics"
)

// --- Mocks ---

type mockSession struct {
	synopsis string
	err      error
	asked    string
	closed   int
}

func (m *mockSession) MatchTitle(context.Context, string) ([]book.Match, error) { return nil, nil }

func (m *mockSession) Nearest(context.Context, int64, []float32, int) ([]book.Book, error) {
	return nil, nil
}

func (m *mockSession) SynopsisByTitle(_ context.Context, title string) (string, error) {
	m.asked = title
	return m.synopsis, m.err
}

func (m *mockSession) SuggestTitles(context.Context, string, int) ([]string, error) { return nil, nil }

func (m *mockSession) Close() { m.closed++ }

type mockCatalog struct{ sess *mockSession }

func (m *mockCatalog) Open(context.Context) (domain.CatalogSession, error) { return m.sess, nil }

type mockGenerator struct {
	out          string
	err          error
	calls        int
	system       string
	prompt       string
	hadDeadline  bool
	sess         *mockSession
	closedAtCall int
}

func (m *mockGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	m.calls++
	m.system, m.prompt = system, prompt
	_, m.hadDeadline = ctx.Deadline()
	if m.sess != nil {
		m.closedAtCall = m.sess.closed
	}
	return m.out, m.err
}

// --- Tests ---

func TestAnalyze_Success(t *testing.T) {
	sess := &mockSession{synopsis: "Sicilia, 1860."}
	gen := &mockGenerator{out: "analisi uno ||| analisi due", sess: sess}
	svc := New(&mockCatalog{sess: sess}, gen, WithLLMTimeout(time.Minute))

	res, err := svc.Analyze(context.Background(), "Il Gattopardo", cands("Uno", "Due"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res["Uno"] != "analisi uno" || res["Due"] != "analisi due" {
		t.Errorf("result = %v", res)
	}
	if gen.calls != 1 {
		t.Errorf("expected exactly one model call, got %d", gen.calls)
	}
	if gen.system != DefaultSystemInstruction {
		t.Errorf("system = %q", gen.system)
	}
	if !strings.Contains(gen.prompt, "Sinossi di riferimento: Sicilia, 1860.") {
		t.Errorf("prompt missing reference synopsis:\n%s", gen.prompt)
	}
	if !gen.hadDeadline {
		t.Error("expected model call to be bounded by a deadline")
	}
	if gen.closedAtCall != 1 {
		t.Error("store session must be released before the model call")
	}
}

func TestAnalyze_MismatchIsNonFatal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ctx := logger.ContextWithLogger(context.Background(), zap.New(core))

	before := testutil.ToFloat64(metrics.AlignmentMismatchTotal)
	gen := &mockGenerator{out: "una sola analisi"}
	svc := New(&mockCatalog{sess: &mockSession{synopsis: "s"}}, gen)

	res, err := svc.Analyze(ctx, "X", cands("A", "B", "C"))
	if err != nil {
		t.Fatalf("mismatch must not fail the request: %v", err)
	}
	if res == nil || len(res) != 0 {
		t.Errorf("expected empty result, got %#v", res)
	}
	if got := testutil.ToFloat64(metrics.AlignmentMismatchTotal); got != before+1 {
		t.Errorf("mismatch counter = %f, want %f", got, before+1)
	}

	entries := logs.FilterMessage("deep dive alignment mismatch").All()
	if len(entries) != 1 {
		t.Fatalf("expected one warning, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["segments"] != int64(1) || fields["candidates"] != int64(3) {
		t.Errorf("log fields = %v", fields)
	}
}

func TestAnalyze_EmptyCandidatesStillCallsModel(t *testing.T) {
	gen := &mockGenerator{out: "testo"}
	res, err := New(&mockCatalog{sess: &mockSession{}}, gen).Analyze(context.Background(), "X", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.calls != 1 || len(res) != 0 {
		t.Errorf("calls=%d res=%v", gen.calls, res)
	}
}

func TestAnalyze_ReferenceNotFound(t *testing.T) {
	sess := &mockSession{err: domain.NewTitleNotFound("Dune")}
	gen := &mockGenerator{}
	_, err := New(&mockCatalog{sess: sess}, gen).Analyze(context.Background(), "Dune", cands("A"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if gen.calls != 0 {
		t.Error("model must not be called when the reference is missing")
	}
	if sess.closed != 1 {
		t.Errorf("session closed %d times", sess.closed)
	}
}

func TestAnalyze_UpstreamFailure(t *testing.T) {
	gen := &mockGenerator{err: errors.New("quota exceeded")}
	_, err := New(&mockCatalog{sess: &mockSession{}}, gen).Analyze(context.Background(), "X", cands("A"))
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestAnalyze_BlankTitleIsNotFound(t *testing.T) {
	gen := &mockGenerator{}
	_, err := New(&mockCatalog{sess: &mockSession{}}, gen).Analyze(context.Background(), " ", cands("A"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if gen.calls != 0 {
		t.Errorf("model called %d times for a blank title", gen.calls)
	}
}

func TestAnalyze_CustomSystemInstruction(t *testing.T) {
	gen := &mockGenerator{out: "a"}
	svc := New(&mockCatalog{sess: &mockSession{}}, gen, WithSystemInstruction("Be brief."))
	if _, err := svc.Analyze(context.Background(), "X", cands("A")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.system != "Be brief." {
		t.Errorf("system = %q", gen.system)
	}
}

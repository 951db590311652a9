package chi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfwise/internal/domain"
	"github.com/kailas-cloud/shelfwise/internal/domain/book"
	"github.com/kailas-cloud/shelfwise/internal/identity"
	deepdiveuc "github.com/kailas-cloud/shelfwise/internal/usecase/deepdive"
	healthuc "github.com/kailas-cloud/shelfwise/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/shelfwise/internal/usecase/recommend"
	suggestuc "github.com/kailas-cloud/shelfwise/internal/usecase/suggest"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeSession struct {
	matches  []book.Match
	nearest  []book.Book
	synopsis string
	titles   []string
	err      error
}

func (f *fakeSession) MatchTitle(context.Context, string) ([]book.Match, error) {
	return f.matches, f.err
}

func (f *fakeSession) Nearest(context.Context, int64, []float32, int) ([]book.Book, error) {
	return f.nearest, f.err
}

func (f *fakeSession) SynopsisByTitle(_ context.Context, title string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.synopsis == "" {
		return "", domain.NewTitleNotFound(title)
	}
	return f.synopsis, nil
}

func (f *fakeSession) SuggestTitles(context.Context, string, int) ([]string, error) {
	return f.titles, f.err
}

func (f *fakeSession) Close() {}

type fakeCatalog struct {
	sess *fakeSession
}

func (c *fakeCatalog) Open(context.Context) (domain.CatalogSession, error) {
	return c.sess, nil
}

type fakeGenerator struct {
	out string
	err error
}

func (g *fakeGenerator) Generate(context.Context, string, string) (string, error) {
	return g.out, g.err
}

type fakePinger struct{ err error }

func (p *fakePinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	router http.Handler
	signer *identity.HMACVerifier
}

func newTestEnv(t *testing.T, sess *fakeSession, gen *fakeGenerator, pinger *fakePinger) *testEnv {
	t.Helper()
	cat := &fakeCatalog{sess: sess}
	if gen == nil {
		gen = &fakeGenerator{}
	}
	if pinger == nil {
		pinger = &fakePinger{}
	}

	signer, err := identity.NewHMACVerifier(testSecret, "shelfwise-test", "shelfwise")
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}

	srv := NewServer(
		recommenduc.New(cat),
		deepdiveuc.New(cat, gen),
		suggestuc.New(cat, 0),
		healthuc.New(pinger, nil, 0),
		zap.NewNop(),
	)
	r := gochi.NewRouter()
	srv.Routes(r, BearerGate(signer, identity.NewWhitelist([]string{"ada@example.com"}), zap.NewNop()), nil)

	return &testEnv{router: r, signer: signer}
}

func (e *testEnv) token(t *testing.T, email string) string {
	t.Helper()
	tok, err := e.signer.Sign(email, time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func year(y int) *int { return &y }

package chi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/shelfwise/internal/domain"
	"github.com/kailas-cloud/shelfwise/internal/domain/book"
)

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return v
}

func similarBooks() []book.Book {
	return []book.Book{
		book.Reconstruct(2, "I Viceré", "De Roberto", year(1894), "Catania.", "NAR DER", nil),
		book.Reconstruct(3, "Senza anno", "Anonimo", nil, "", "", nil),
	}
}

func TestRecommend_SingleMatch(t *testing.T) {
	sess := &fakeSession{
		matches: []book.Match{{ID: 1, Title: "Il Gattopardo", Embedding: []float32{0.1}}},
		nearest: similarBooks(),
	}
	env := newTestEnv(t, sess, nil, nil)

	for _, path := range []string{"/api/recommend", "/api/recomend"} {
		t.Run(path, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, path, `{"title":"gattopardo"}`, env.token(t, "ada@example.com"))
			if rr.Code != http.StatusOK {
				t.Fatalf("got %d: %s", rr.Code, rr.Body)
			}

			got := decode[[]bookResponse](t, rr.Body.Bytes())
			if len(got) != 2 {
				t.Fatalf("got %d books", len(got))
			}
			if got[0].ID != 2 || got[0].ShelfLocation != "NAR DER" || got[0].Year == nil || *got[0].Year != 1894 {
				t.Errorf("first book = %+v", got[0])
			}
			if got[1].Year != nil {
				t.Errorf("absent year should be null, got %d", *got[1].Year)
			}
		})
	}
}

func TestRecommend_YearSerializedAsNull(t *testing.T) {
	sess := &fakeSession{
		matches: []book.Match{{ID: 1, Title: "x"}},
		nearest: similarBooks()[1:],
	}
	env := newTestEnv(t, sess, nil, nil)

	rr := env.do(t, http.MethodPost, "/api/recommend", `{"title":"x"}`, env.token(t, "ada@example.com"))
	if !strings.Contains(rr.Body.String(), `"year":null`) {
		t.Errorf("body = %s", rr.Body)
	}
}

func TestRecommend_Ambiguous(t *testing.T) {
	sess := &fakeSession{matches: []book.Match{{ID: 4, Title: "Dune"}, {ID: 9, Title: "Dune Messiah"}}}
	env := newTestEnv(t, sess, nil, nil)

	rr := env.do(t, http.MethodPost, "/api/recommend", `{"titolo":"dune"}`, env.token(t, "ada@example.com"))
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	got := decode[disambiguationResponse](t, rr.Body.Bytes())
	if got.Message != disambiguationMessage {
		t.Errorf("message = %q", got.Message)
	}
	if len(got.Options) != 2 || got.Options[0] != "Dune" || got.Options[1] != "Dune Messiah" {
		t.Errorf("options = %v", got.Options)
	}
}

func TestRecommend_NotFound(t *testing.T) {
	env := newTestEnv(t, &fakeSession{}, nil, nil)

	rr := env.do(t, http.MethodPost, "/api/recommend", `{"title":"Zzz"}`, env.token(t, "ada@example.com"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d", rr.Code)
	}
	got := decode[errorResponse](t, rr.Body.Bytes())
	if got.Error != fmt.Sprintf(notFoundMessage, "Zzz") {
		t.Errorf("error = %q", got.Error)
	}
}

func TestRecommend_BadRequest(t *testing.T) {
	env := newTestEnv(t, &fakeSession{}, nil, nil)
	tok := env.token(t, "ada@example.com")

	for name, body := range map[string]string{
		"missing title": `{}`,
		"wrong field":   `{"name":"Dune"}`,
		"not json":      `title=Dune`,
	} {
		t.Run(name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/api/recommend", body, tok)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("got %d: %s", rr.Code, rr.Body)
			}
		})
	}
}

func TestRecommend_StoreFailure(t *testing.T) {
	sess := &fakeSession{err: fmt.Errorf("%w: connection refused", domain.ErrStoreUnavailable)}
	env := newTestEnv(t, sess, nil, nil)

	rr := env.do(t, http.MethodPost, "/api/recommend", `{"title":"Dune"}`, env.token(t, "ada@example.com"))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d", rr.Code)
	}
	got := decode[errorResponse](t, rr.Body.Bytes())
	if got.Error == "" || !strings.Contains(got.Details, "connection refused") {
		t.Errorf("body = %+v", got)
	}
}

func TestRecommend_RequiresAuth(t *testing.T) {
	env := newTestEnv(t, &fakeSession{}, nil, nil)

	if rr := env.do(t, http.MethodPost, "/api/recommend", `{"title":"Dune"}`, ""); rr.Code != http.StatusUnauthorized {
		t.Errorf("no token: got %d", rr.Code)
	}
	tok := env.token(t, "eve@example.com")
	if rr := env.do(t, http.MethodPost, "/api/recommend", `{"title":"Dune"}`, tok); rr.Code != http.StatusForbidden {
		t.Errorf("not whitelisted: got %d", rr.Code)
	}
}

const deepDiveBody = `{"titolo":"Il Gattopardo","recommendations":[` +
	`{"titolo":"I Viceré","synopsis":"Catania."},{"title":"Senso","synopsis":"Venezia."}]}`

func TestDeepDive_Aligned(t *testing.T) {
	sess := &fakeSession{synopsis: "Sicilia, 1860."}
	gen := &fakeGenerator{out: " Saga familiare. ||| Decadenza aristocratica. "}
	env := newTestEnv(t, sess, gen, nil)

	rr := env.do(t, http.MethodPost, "/api/deep_dive", deepDiveBody, env.token(t, "ada@example.com"))
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	got := decode[deepDiveResponse](t, rr.Body.Bytes())
	if got.Analysis["I Viceré"] != "Saga familiare." || got.Analysis["Senso"] != "Decadenza aristocratica." {
		t.Errorf("analysis = %v", got.Analysis)
	}
}

func TestDeepDive_MismatchReturnsEmptyAnalysis(t *testing.T) {
	sess := &fakeSession{synopsis: "Sicilia, 1860."}
	gen := &fakeGenerator{out: "una sola analisi"}
	env := newTestEnv(t, sess, gen, nil)

	rr := env.do(t, http.MethodPost, "/api/deep_dive", deepDiveBody, env.token(t, "ada@example.com"))
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	if strings.TrimSpace(rr.Body.String()) != `{"analysis":{}}` {
		t.Errorf("body = %s", rr.Body)
	}
}

func TestDeepDive_Errors(t *testing.T) {
	tests := []struct {
		name   string
		sess   *fakeSession
		gen    *fakeGenerator
		body   string
		status int
	}{
		{"missing recommendations", &fakeSession{synopsis: "s"}, nil, `{"title":"x"}`, http.StatusBadRequest},
		{"missing title", &fakeSession{synopsis: "s"}, nil, `{"recommendations":[]}`, http.StatusBadRequest},
		{"candidate without title", &fakeSession{synopsis: "s"}, nil,
			`{"title":"x","recommendations":[{"synopsis":"s"}]}`, http.StatusBadRequest},
		{"reference not found", &fakeSession{}, nil, deepDiveBody, http.StatusNotFound},
		{"blank title", &fakeSession{synopsis: "s"}, nil,
			`{"title":"  ","recommendations":[{"title":"a"}]}`, http.StatusNotFound},
		{"llm failure", &fakeSession{synopsis: "s"}, &fakeGenerator{err: errors.New("quota exceeded")},
			deepDiveBody, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, tc.sess, tc.gen, nil)
			rr := env.do(t, http.MethodPost, "/api/deep_dive", tc.body, env.token(t, "ada@example.com"))
			if rr.Code != tc.status {
				t.Fatalf("got %d, want %d: %s", rr.Code, tc.status, rr.Body)
			}
		})
	}
}

func TestDeepDive_UpstreamDetails(t *testing.T) {
	env := newTestEnv(t, &fakeSession{synopsis: "s"}, &fakeGenerator{err: errors.New("quota exceeded")}, nil)

	rr := env.do(t, http.MethodPost, "/api/deep_dive", deepDiveBody, env.token(t, "ada@example.com"))
	got := decode[errorResponse](t, rr.Body.Bytes())
	if !strings.Contains(got.Details, "quota exceeded") {
		t.Errorf("details = %q", got.Details)
	}
}

func TestSuggestTitles(t *testing.T) {
	env := newTestEnv(t, &fakeSession{titles: []string{"Dune", "Dune Messiah"}}, nil, nil)

	rr := env.do(t, http.MethodGet, "/api/suggest_titles?query=dun", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body)
	}
	got := decode[[]string](t, rr.Body.Bytes())
	if len(got) != 2 || got[0] != "Dune" {
		t.Errorf("titles = %v", got)
	}
}

func TestSuggestTitles_EmptyQuery(t *testing.T) {
	env := newTestEnv(t, &fakeSession{titles: []string{"never"}}, nil, nil)

	for _, path := range []string{"/api/suggest_titles", "/api/suggest_titles?query=%20%20"} {
		rr := env.do(t, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "[]" {
			t.Errorf("%s: got %d %s", path, rr.Code, rr.Body)
		}
	}
}

func TestSuggestTitles_StoreFailure(t *testing.T) {
	env := newTestEnv(t, &fakeSession{err: fmt.Errorf("%w: timeout", domain.ErrStoreUnavailable)}, nil, nil)

	rr := env.do(t, http.MethodGet, "/api/suggest_titles?query=dune", "", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		pinger *fakePinger
		status int
		want   string
	}{
		{"healthy", &fakePinger{}, http.StatusOK, "ok"},
		{"degraded", &fakePinger{err: errors.New("down")}, http.StatusServiceUnavailable, "degraded"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, &fakeSession{}, nil, tc.pinger)
			rr := env.do(t, http.MethodGet, "/health", "", "")
			if rr.Code != tc.status {
				t.Fatalf("got %d", rr.Code)
			}
			got := decode[healthResponse](t, rr.Body.Bytes())
			if got.Status != tc.want {
				t.Errorf("status = %q", got.Status)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, &fakeSession{}, nil, nil)

	rr := env.do(t, http.MethodGet, "/metrics", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
}

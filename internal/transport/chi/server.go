// Package chi is the HTTP transport: routes, the access gate and the error mapping.
package chi

import (
	"errors"
	"fmt"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shelfwise/internal/domain"
	deepdiveuc "github.com/kailas-cloud/shelfwise/internal/usecase/deepdive"
	healthuc "github.com/kailas-cloud/shelfwise/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/shelfwise/internal/usecase/recommend"
	suggestuc "github.com/kailas-cloud/shelfwise/internal/usecase/suggest"
)

const (
	disambiguationMessage = "Trovati più libri. Seleziona quello corretto."
	notFoundMessage       = "Nessun libro trovato che corrisponda a '%s'."
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server holds the HTTP handlers.
type Server struct {
	recommend     *recommenduc.Service
	deepDive      *deepdiveuc.Service
	suggest       *suggestuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	recommend *recommenduc.Service,
	deepDive *deepdiveuc.Service,
	suggest *suggestuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		recommend: recommend,
		deepDive:  deepDive,
		suggest:   suggest,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		titleNotFoundHandler,
		sentinelHandler(domain.ErrBadRequest, http.StatusBadRequest, "invalid request"),
		sentinelHandler(domain.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"),
		sentinelHandler(domain.ErrForbidden, http.StatusForbidden, "user not authorized"),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, "not found"),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusInternalServerError, "database error"),
		sentinelHandler(domain.ErrUpstream, http.StatusInternalServerError, "language model error"),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusInternalServerError, "catalog vector mismatch"),
	}
	return s
}

// Routes registers the API on r. gate guards the recommendation endpoints;
// suggestLimit, when non-nil, throttles autocomplete.
func (s *Server) Routes(r gochi.Router, gate, suggestLimit func(http.Handler) http.Handler) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api", func(r gochi.Router) {
		r.Group(func(r gochi.Router) {
			r.Use(gate)
			r.Post("/recommend", s.Recommend)
			r.Post("/recomend", s.Recommend)
			r.Post("/deep_dive", s.DeepDive)
		})

		if suggestLimit != nil {
			r.With(suggestLimit).Get("/suggest_titles", s.SuggestTitles)
		} else {
			r.Get("/suggest_titles", s.SuggestTitles)
		}
	})
}

// Recommend handles POST /api/recommend.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	in := req.normalize()
	if err := validate.Struct(in); err != nil {
		writeError(w, http.StatusBadRequest, "field 'title' is required")
		return
	}

	out, err := s.recommend.Recommend(r.Context(), *in.Title)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if out.Ambiguous() {
		writeJSON(w, http.StatusOK, disambiguationResponse{Message: disambiguationMessage, Options: out.Options})
		return
	}

	items := make([]bookResponse, len(out.Books))
	for i := range out.Books {
		items[i] = bookToResponse(&out.Books[i])
	}
	writeJSON(w, http.StatusOK, items)
}

// DeepDive handles POST /api/deep_dive.
func (s *Server) DeepDive(w http.ResponseWriter, r *http.Request) {
	var req deepDiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	in := req.normalize()
	if err := validate.Struct(in); err != nil {
		writeError(w, http.StatusBadRequest, "fields 'title' and 'recommendations' are required")
		return
	}

	res, err := s.deepDive.Analyze(r.Context(), *in.Title, in.candidates())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if res == nil {
		res = deepdiveuc.Result{}
	}
	writeJSON(w, http.StatusOK, deepDiveResponse{Analysis: res})
}

// SuggestTitles handles GET /api/suggest_titles.
func (s *Server) SuggestTitles(w http.ResponseWriter, r *http.Request) {
	p, err := bindSuggestParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	titles, err := s.suggest.Suggest(r.Context(), p.Query)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, titles)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// Server errors also carry the wrapped error chain in details.
func sentinelHandler(sentinel error, status int, message string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		resp := errorResponse{Error: message}
		if status >= http.StatusInternalServerError {
			resp.Details = err.Error()
		}
		writeJSON(w, status, resp)
		return true
	}
}

// titleNotFoundHandler echoes the searched title back to the caller.
func titleNotFoundHandler(w http.ResponseWriter, err error) bool {
	var tnf *domain.TitleNotFoundError
	if !errors.As(err, &tnf) {
		return false
	}
	writeError(w, http.StatusNotFound, fmt.Sprintf(notFoundMessage, tnf.Title))
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := zap.String("request_id", chiMiddleware.GetReqID(r.Context()))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			s.logger.Warn("domain error", reqID, zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", reqID, zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", Details: err.Error()})
}

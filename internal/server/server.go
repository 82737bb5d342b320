// Package server exposes both pipelines over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/warehouse-rag/internal/answer"
	"github.com/sells-group/warehouse-rag/internal/filings"
	"github.com/sells-group/warehouse-rag/internal/model"
)

// Answerer runs the question-answering pipeline.
type Answerer interface {
	Run(ctx context.Context, query string) (*answer.Report, error)
}

// Ingester runs filing ingestion.
type Ingester interface {
	Run(ctx context.Context, urls []string) (*model.IngestReport, error)
}

// Querier runs a named filing query.
type Querier interface {
	RunQuery(ctx context.Context, name filings.QueryName) (*model.ResultSet, error)
}

// Config wires the handlers. BaseContext scopes background ingestion runs;
// it defaults to context.Background().
type Config struct {
	Answerer       Answerer
	Ingester       Ingester
	Querier        Querier
	AllowedOrigins []string
	BaseContext    context.Context
}

// Server holds the router and tracks background work.
type Server struct {
	cfg    Config
	router chi.Router
	wg     sync.WaitGroup
}

// New builds the router.
func New(cfg Config) *Server {
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	s := &Server{cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/answer", s.handleAnswer)
		r.Route("/filings", func(r chi.Router) {
			r.Post("/ingest", s.handleIngest)
			r.Get("/queries", s.handleListQueries)
			r.Get("/queries/{name}", s.handleQuery)
		})
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Wait blocks until background ingestion runs finish.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, model.ErrEmptyQuery.Error())
		return
	}

	report, err := s.cfg.Answerer.Run(r.Context(), req.Query)
	if err != nil {
		zap.L().Error("server: answer failed", zap.String("query", req.Query), zap.Error(err))
		writeError(w, answerStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func answerStatus(err error) int {
	switch {
	case errors.Is(err, model.ErrEmptyQuery):
		return http.StatusBadRequest
	case model.IsArticleNotFound(err):
		return http.StatusNotFound
	case model.IsUpstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URLs []string `json:"urls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls is required")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		report, err := s.cfg.Ingester.Run(s.cfg.BaseContext, req.URLs)
		if err != nil {
			zap.L().Error("server: ingestion failed", zap.Int("documents", len(req.URLs)), zap.Error(err))
			return
		}
		zap.L().Info("server: ingestion complete",
			zap.String("run_id", report.RunID),
			zap.Int("written", report.Count(model.OutcomeWritten)),
			zap.Int("failed", report.Count(model.OutcomeFailed)),
		)
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":    "accepted",
		"documents": len(req.URLs),
	})
}

func (s *Server) handleListQueries(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"queries": filings.QueryNames()})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "name")
	name, ok := filings.ParseQueryName(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown query "+id)
		return
	}

	rs, err := s.cfg.Querier.RunQuery(r.Context(), name)
	if err != nil {
		zap.L().Error("server: query failed", zap.String("query", string(name)), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "columns":
		writeJSON(w, http.StatusOK, rs)
	case "records":
		writeJSON(w, http.StatusOK, rs.Records())
	default:
		writeError(w, http.StatusBadRequest, "format must be columns or records")
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: encode response", zap.Error(err))
	}
}

// Package api serves read-only JSON queries over a loaded class index.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jindex/internal/index"
	"github.com/jindex/pkg/config"
	"github.com/jindex/pkg/constantpool"
	apperrors "github.com/jindex/pkg/errors"
	"github.com/jindex/pkg/pprof"
	"github.com/jindex/pkg/telemetry"
	"github.com/jindex/pkg/utils"
)

// Server answers class index queries over HTTP.
type Server struct {
	idx    *index.ClassIndex
	name   string
	search constantpool.SearchOptions
	cfg    config.ServerConfig
	logger utils.Logger
	server *http.Server

	profiling bool
}

// NewServer creates a server for idx. The search section of cfg supplies
// the defaults of /api/classes.
func NewServer(idx *index.ClassIndex, name string, cfg *config.Config, logger utils.Logger) (*Server, error) {
	if idx == nil {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "index is nil")
	}
	search, err := cfg.SearchOptions()
	if err != nil {
		return nil, err
	}

	return &Server{
		idx:       idx,
		name:      name,
		search:    search,
		cfg:       cfg.Server,
		logger:    utils.OrNull(logger),
		profiling: cfg.Pprof.Enabled,
	}, nil
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/info", s.handleInfo)
	mux.HandleFunc("GET /api/classes", s.handleClasses)
	mux.HandleFunc("GET /api/class", s.handleClass)
	mux.HandleFunc("GET /api/packages", s.handlePackages)
	mux.HandleFunc("GET /api/methods", s.handleMethods)
	mux.HandleFunc("GET /api/implementations", s.handleImplementations)
	mux.HandleFunc("GET /api/base-methods", s.handleBaseMethods)
	if s.profiling {
		mux.Handle("/debug/pprof/", pprof.Handler())
	}
	return s.traced(mux)
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.logger.Info("Serving %s (%d classes) at %s", s.name, len(s.idx.Classes()), s.cfg.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) traced(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := telemetry.StartSpan(r.Context(), "api "+r.URL.Path,
			attribute.String("http.method", r.Method),
			attribute.String("http.query", r.URL.RawQuery))
		next.ServeHTTP(w, r.WithContext(ctx))
		telemetry.EndSpan(span, nil)
		s.logger.Debug("%s %s?%s took %v", r.Method, r.URL.Path, r.URL.RawQuery, time.Since(start))
	})
}

// ============================================================================
// Responses
// ============================================================================

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperrors.GetErrorCode(err) {
	case apperrors.CodeInvalidInput:
		status = http.StatusBadRequest
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	}
	s.writeJSON(w, status, errorResponse{
		Error: apperrors.GetErrorMessage(err),
		Code:  apperrors.GetErrorCode(err),
	})
}

func required(r *http.Request, key string) (string, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return "", apperrors.Newf(apperrors.CodeInvalidInput, "query parameter %q is required", key)
	}
	return v, nil
}

func intParam(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperrors.Newf(apperrors.CodeInvalidInput, "query parameter %q must be a non-negative integer", key)
	}
	return n, nil
}

func boolParam(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, apperrors.Newf(apperrors.CodeInvalidInput, "query parameter %q must be a boolean", key)
	}
	return b, nil
}

// SearchOptionsFromQuery overrides defaults with the mode, match and limit
// query parameters.
func SearchOptionsFromQuery(r *http.Request, defaults constantpool.SearchOptions) (constantpool.SearchOptions, error) {
	opts := defaults
	q := r.URL.Query()

	if v := q.Get("mode"); v != "" {
		mode, err := constantpool.ParseSearchMode(v)
		if err != nil {
			return opts, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid mode", err)
		}
		opts.SearchMode = mode
	}
	if v := q.Get("match"); v != "" {
		match, err := constantpool.ParseMatchMode(v)
		if err != nil {
			return opts, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid match", err)
		}
		opts.MatchMode = match
	}
	limit, err := intParam(r, "limit", opts.Limit)
	if err != nil {
		return opts, err
	}
	opts.Limit = limit
	return opts, nil
}

func (s *Server) lookupClass(r *http.Request) (*index.IndexedClass, error) {
	name, err := required(r, "class")
	if err != nil {
		return nil, err
	}
	c := s.idx.FindClassByName(name)
	if c == nil {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "class not found: %s", name)
	}
	return c, nil
}

func (s *Server) lookupMethod(r *http.Request, c *index.IndexedClass) ([]*index.IndexedMethod, error) {
	name, err := required(r, "method")
	if err != nil {
		return nil, err
	}
	methods := LookupMethods(s.idx, c, name, r.URL.Query().Get("descriptor"))
	if len(methods) == 0 {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "method not found: %s.%s", s.idx.ClassNameWithPackage(c), name)
	}
	return methods, nil
}

// ============================================================================
// Handlers
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, IndexInfo{
		Name:     s.name,
		Stats:    s.idx.Stats(),
		TimeInfo: s.idx.TimeInfo(),
	})
}

// handleClasses serves /api/classes?q=Map&mode=contains&match=match-case&limit=10.
func (s *Server) handleClasses(w http.ResponseWriter, r *http.Request) {
	query, err := required(r, "q")
	if err != nil {
		s.writeError(w, err)
		return
	}
	opts, err := SearchOptionsFromQuery(r, s.search)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NewClassSummaries(s.idx, s.idx.FindClasses(query, opts)))
}

// handleClass serves /api/class?class=java/util/Map$Entry.
func (s *Server) handleClass(w http.ResponseWriter, r *http.Request) {
	c, err := s.lookupClass(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NewClassDetail(s.idx, c))
}

// handlePackages serves /api/packages?q=java/ut.
func (s *Server) handlePackages(w http.ResponseWriter, r *http.Request) {
	pkgs := s.idx.FindPackages(r.URL.Query().Get("q"))
	s.writeJSON(w, http.StatusOK, PackageNames(s.idx, pkgs))
}

// handleMethods serves /api/methods?prefix=get&limit=20.
func (s *Server) handleMethods(w http.ResponseWriter, r *http.Request) {
	prefix, err := required(r, "prefix")
	if err != nil {
		s.writeError(w, err)
		return
	}
	limit, err := intParam(r, "limit", s.search.Limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NewMethodViews(s.idx, s.idx.FindMethods(prefix, limit)))
}

// handleImplementations serves /api/implementations?class=p/Api&direct=true
// for subclasses and, with a method parameter, the overriding methods.
func (s *Server) handleImplementations(w http.ResponseWriter, r *http.Request) {
	c, err := s.lookupClass(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if r.URL.Query().Get("method") == "" {
		direct, err := boolParam(r, "direct")
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, NewClassSummaries(s.idx, s.idx.FindImplementationsOfClass(c.Index(), direct)))
		return
	}

	methods, err := s.lookupMethod(r, c)
	if err != nil {
		s.writeError(w, err)
		return
	}
	result := []MethodView{}
	for _, m := range methods {
		result = append(result, NewMethodViews(s.idx, s.idx.FindImplementationsOfMethod(c.Index(), m))...)
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleBaseMethods serves /api/base-methods?class=p/Impl&method=call.
func (s *Server) handleBaseMethods(w http.ResponseWriter, r *http.Request) {
	c, err := s.lookupClass(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	methods, err := s.lookupMethod(r, c)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result := []MethodView{}
	for _, m := range methods {
		result = append(result, NewMethodViews(s.idx, s.idx.FindBaseMethodsOfMethod(c.Index(), m))...)
	}
	s.writeJSON(w, http.StatusOK, result)
}

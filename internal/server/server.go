// Package server exposes a loaded package index over a read-only HTTP API.
//
// Routes:
//
//	GET /healthz                                  liveness and index size
//	GET /packages/{name}                          one index record
//	GET /resolve?pkg=a&pkg=b&deps=true&recommends=true
//	                                              download plan, no downloads
//	GET /graph?pkg=a&deps=true&format=dot|svg     dependency graph
//
// The index is parsed once at startup and shared by all requests.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/debfetch/pkg/debian"
	apperrors "github.com/matzehuels/debfetch/pkg/errors"
	"github.com/matzehuels/debfetch/pkg/pipeline"
	"github.com/matzehuels/debfetch/pkg/render"
)

// maxPackages bounds the pkg parameters of a single request.
const maxPackages = 100

// Server serves one index.
type Server struct {
	idx        *debian.Index
	logger     *log.Logger
	httpServer *http.Server
}

// New creates a server for idx listening on addr.
func New(addr string, idx *debian.Index, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{idx: idx, logger: logger}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/packages/{name}", s.handlePackage)
	r.Get("/resolve", s.handleResolve)
	r.Get("/graph", s.handleGraph)
	return r
}

// Start listens until [Server.Shutdown] is called.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.httpServer.Addr, "records", s.idx.Len())
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "records": s.idx.Len()})
}

func (s *Server) handlePackage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := apperrors.ValidateDebianPackageName(name); err != nil {
		writeError(w, err)
		return
	}
	rec, ok := s.idx.Lookup(name)
	if !ok {
		writeError(w, apperrors.New(apperrors.ErrCodePackageNotFound, "package %q not in index", name))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	req, err := parseQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pipeline.Plan(s.idx, req.packages, req.deps, req.recommends))
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	req, err := parseQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res := pipeline.Plan(s.idx, req.packages, req.deps, req.recommends)
	dot := render.ToDOT(render.Build(s.idx, res), render.Options{Detailed: true})

	switch format := r.URL.Query().Get("format"); format {
	case "", "dot":
		w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
		io.WriteString(w, dot)
	case "svg":
		svg, err := render.RenderSVG(r.Context(), dot)
		if err != nil {
			writeError(w, apperrors.Wrap(apperrors.ErrCodeInternal, err, "render graph"))
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Write(svg)
	default:
		writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "unsupported format %q (use dot or svg)", format))
	}
}

type query struct {
	packages   []string
	deps       bool
	recommends bool
}

func parseQuery(r *http.Request) (query, error) {
	q := r.URL.Query()
	req := query{packages: q["pkg"]}

	opts := pipeline.Options{Packages: req.packages}
	if err := opts.Validate(); err != nil {
		return req, err
	}
	if len(req.packages) > maxPackages {
		return req, apperrors.New(apperrors.ErrCodeInvalidInput, "too many packages (max %d)", maxPackages)
	}

	var err error
	if req.deps, err = parseBool(q.Get("deps")); err != nil {
		return req, err
	}
	if req.recommends, err = parseBool(q.Get("recommends")); err != nil {
		return req, err
	}
	return req, nil
}

func parseBool(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid boolean %q", v)
	}
	return b, nil
}

type errorBody struct {
	Error   apperrors.Code `json:"error"`
	Message string         `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	if code == "" {
		code = apperrors.ErrCodeInternal
	}
	writeJSON(w, apperrors.HTTPStatus(err), errorBody{Error: code, Message: apperrors.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Package server exposes document generation over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/sistemadual/docgen/internal/chart"
	"github.com/sistemadual/docgen/internal/jobs"
	"github.com/sistemadual/docgen/internal/pipeline"
	"github.com/sistemadual/docgen/pkg/docgen"
)

// Response headers of a synchronous generation.
const (
	HeaderConverted = "X-Docgen-Converted"
	HeaderMessage   = "X-Docgen-Message"
	HeaderRequestID = "X-Docgen-Request-Id"
)

// Generator produces documents.
type Generator interface {
	Generate(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// DocumentRequest is the JSON body of a generation request.
type DocumentRequest struct {
	Template   string         `json:"template"`
	Profile    string         `json:"profile,omitempty"`
	Context    map[string]any `json:"context"`
	OutputName string         `json:"output_name,omitempty"`
	Convert    *bool          `json:"convert,omitempty"`
	Charts     map[string]int `json:"charts,omitempty"`
}

func (r DocumentRequest) pipeline(id string) pipeline.Request {
	return pipeline.Request{
		ID:         id,
		Template:   r.Template,
		Profile:    r.Profile,
		Context:    docgen.Data(r.Context),
		OutputName: r.OutputName,
		Convert:    r.Convert,
		Charts:     r.Charts,
	}
}

// Server handles the HTTP API.
type Server struct {
	gen     Generator
	queue   *jobs.Queue
	tempDir string
	chart   chart.Options
	logger  *log.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithQueue enables the asynchronous job endpoints.
func WithQueue(q *jobs.Queue) Option {
	return func(s *Server) { s.queue = q }
}

// WithTempDir sets where synchronous artifacts are staged before they are
// streamed to the client.
func WithTempDir(dir string) Option {
	return func(s *Server) { s.tempDir = dir }
}

// WithChartOptions sets the default chart raster size.
func WithChartOptions(opts chart.Options) Option {
	return func(s *Server) { s.chart = opts }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Server generating with gen.
func New(gen Generator, opts ...Option) *Server {
	s := &Server{gen: gen, tempDir: os.TempDir(), logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/documents", s.createDocument)
		r.Get("/charts/{percent:[0-9]+}.png", s.renderChart)
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.createJob)
			r.Get("/{id}", s.getJob)
			r.Get("/{id}/artifact", s.getArtifact)
		})
	})
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createDocument(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	out, err := os.MkdirTemp(s.tempDir, "docgen_http_")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer os.RemoveAll(out)

	preq := req.pipeline(requestID(r))
	preq.OutputDir = out
	res, err := s.gen.Generate(r.Context(), preq)
	if err != nil {
		writeResult(w, statusFor(err), res, err)
		return
	}

	f, err := os.Open(res.Path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	setArtifactHeaders(w, res)
	http.ServeContent(w, r, filepath.Base(res.Path), info.ModTime(), f)
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		writeError(w, http.StatusNotImplemented, errors.New("background jobs are disabled"))
		return
	}
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	id := uuid.NewString()
	preq := req.pipeline(id)
	if preq.OutputName == "" {
		base := filepath.Base(req.Template)
		preq.OutputName = strings.TrimSuffix(base, filepath.Ext(base)) + "_" + id
	}
	job, err := s.queue.Submit(r.Context(), preq)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Location", "/v1/jobs/"+job.ID)
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) getArtifact(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	switch {
	case job.Status == jobs.StatusFailed:
		writeError(w, http.StatusConflict, errors.New(job.Error))
		return
	case !job.Status.Finished() || job.Result == nil:
		writeError(w, http.StatusConflict, errors.New("job is "+string(job.Status)))
		return
	}
	setArtifactHeaders(w, *job.Result)
	http.ServeFile(w, r, job.Result.Path)
}

func (s *Server) lookupJob(w http.ResponseWriter, r *http.Request) (*jobs.Job, bool) {
	if s.queue == nil {
		writeError(w, http.StatusNotImplemented, errors.New("background jobs are disabled"))
		return nil, false
	}
	job, err := s.queue.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return nil, false
	}
	return job, true
}

func (s *Server) renderChart(w http.ResponseWriter, r *http.Request) {
	pct, err := strconv.Atoi(chi.URLParam(r, "percent"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	opts := s.chart
	if size := r.URL.Query().Get("size"); size != "" {
		px, err := strconv.Atoi(size)
		if err != nil || px < 16 || px > 4096 {
			writeError(w, http.StatusBadRequest, errors.New("size must be between 16 and 4096"))
			return
		}
		opts.SizePx = px
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if err := chart.Encode(w, pct, opts); err != nil {
		s.logger.Error("could not render chart", "percent", pct, "err", err)
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (DocumentRequest, bool) {
	var req DocumentRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 10<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return req, false
	}
	if req.Template == "" {
		writeError(w, http.StatusBadRequest, errors.New("template is required"))
		return req, false
	}
	return req, true
}

func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, docgen.ErrTemplateNotFound), errors.Is(err, jobs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrTemplateOutside), errors.Is(err, pipeline.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusUnprocessableEntity
}

func setArtifactHeaders(w http.ResponseWriter, res pipeline.Result) {
	h := w.Header()
	h.Set(HeaderConverted, strconv.FormatBool(res.Converted))
	h.Set(HeaderMessage, res.Message)
	h.Set(HeaderRequestID, res.RequestID)
	if res.Converted {
		h.Set("Content-Type", "application/pdf")
	} else {
		h.Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	}
	h.Set("Content-Disposition", `attachment; filename="`+filepath.Base(res.Path)+`"`)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeResult(w http.ResponseWriter, status int, res pipeline.Result, err error) {
	writeJSON(w, status, errorBody{Error: err.Error(), Message: res.Message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request", middleware.GetReqID(r.Context()),
		)
	})
}

package preview

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/html"

	"github.com/vango-dev/fbind/internal/errors"
	"github.com/vango-dev/fbind/pkg/compiler"
	"github.com/vango-dev/fbind/pkg/dom"
	"github.com/vango-dev/fbind/pkg/observe"
	"github.com/vango-dev/fbind/pkg/scope"
	"github.com/vango-dev/fbind/pkg/source"
)

// RootAttr marks the mounted container in served pages.
const RootAttr = "data-fbind-root"

// Config describes what the server previews.
type Config struct {
	// Template is the template location (file, "-" or s3://).
	Template string

	// Scope is the scope data location. Empty means an empty scope.
	Scope string

	// Selector picks the container to mount: "#id", ".class" or a tag.
	// Defaults to "body".
	Selector string

	// Watch remounts the template when its file changes.
	Watch bool

	// Metrics exposes Prometheus metrics at /metrics.
	Metrics bool
}

// Server is a live preview of one template.
type Server struct {
	cfg      Config
	loader   *source.Loader
	compiler *compiler.Compiler
	registry *prometheus.Registry
	logger   *slog.Logger
	hub      *hub
	router   chi.Router

	mu    sync.Mutex
	doc   *html.Node
	view  *compiler.View
	scope *scope.Object
}

// Option configures a Server.
type Option func(*options)

type options struct {
	loader       *source.Loader
	logger       *slog.Logger
	registry     *prometheus.Registry
	compilerOpts []compiler.Option
}

// WithLoader sets the source loader. Defaults to a loader without S3.
func WithLoader(l *source.Loader) Option {
	return func(o *options) {
		o.loader = l
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRegistry sets the registry the compiler metrics are registered with.
func WithRegistry(r *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithCompilerOptions passes options through to the compiler.
func WithCompilerOptions(opts ...compiler.Option) Option {
	return func(o *options) {
		o.compilerOpts = append(o.compilerOpts, opts...)
	}
}

// New creates a preview server. Call Load before serving.
func New(cfg Config, opts ...Option) *Server {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.loader == nil {
		o.loader = source.New(source.WithLogger(o.logger))
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
	}
	if cfg.Selector == "" {
		cfg.Selector = "body"
	}

	metrics := observe.NewMetrics(observe.WithRegistry(o.registry))
	copts := append([]compiler.Option{
		compiler.WithLogger(o.logger),
		compiler.WithMetrics(metrics),
	}, o.compilerOpts...)

	s := &Server{
		cfg:      cfg,
		loader:   o.loader,
		compiler: compiler.New(copts...),
		registry: o.registry,
		logger:   o.logger.With("component", "preview"),
		hub:      newHub(o.logger),
	}
	s.router = s.routes()
	return s
}

// Load reads the template and mounts it. Scope data is read on the first
// load only; later loads keep the live scope and replace the view.
func (s *Server) Load(ctx context.Context) error {
	doc, err := s.loader.Template(ctx, s.cfg.Template)
	if err != nil {
		return err
	}
	container := dom.Find(doc, s.cfg.Selector)
	if container == nil {
		return errors.New("B009").WithDetailf("selector %q matched nothing in %s", s.cfg.Selector, s.cfg.Template)
	}

	s.mu.Lock()
	if s.scope == nil {
		sc, err := s.loader.Scope(ctx, s.cfg.Scope)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.scope = sc
	}
	if s.view != nil {
		s.view.Destroy()
		s.view = nil
	}
	view, err := s.compiler.Mount(ctx, container, s.scope)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	dom.SetAttr(container, RootAttr, "")
	s.doc, s.view = doc, view
	markup, err := view.RenderAnnotated()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	for _, verr := range view.Errors() {
		s.logger.Warn("template issue", "code", errors.CodeOf(verr), "error", verr)
	}
	s.logger.Info("template loaded",
		"template", s.cfg.Template,
		"bindings", view.Bindings(),
		"clients", s.hub.count(),
	)
	s.hub.broadcast(ServerMessage{Type: TypeRender, HTML: markup})
	return nil
}

// Apply performs a client message against the live view and pushes the
// new rendering to every client.
func (s *Server) Apply(msg ClientMessage) error {
	s.mu.Lock()
	if s.view == nil {
		s.mu.Unlock()
		return errors.New("P300").WithDetail("no template loaded")
	}

	var err error
	switch msg.Type {
	case TypeSet:
		if msg.Path == "" {
			err = errors.New("P301").WithDetail("set requires a path")
		} else if serr := s.scope.Set(msg.Path, msg.Value); serr != nil {
			err = errors.FromError(serr, "P301")
		}
	case TypeEvent:
		if msg.Event == "" {
			err = errors.New("P301").WithDetail("event requires an event type")
		} else {
			err = s.view.Dispatch(msg.ID, msg.Event, msg.Value)
		}
	default:
		err = errors.New("P301").WithDetailf("unknown message type %q", msg.Type)
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}

	markup, err := s.view.RenderAnnotated()
	s.mu.Unlock()
	if err != nil {
		return errors.New("P300").Wrap(err)
	}
	s.hub.broadcast(ServerMessage{Type: TypeRender, HTML: markup})
	return nil
}

// Snapshot returns the current annotated markup of the mounted container.
func (s *Server) Snapshot() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return "", errors.New("P300").WithDetail("no template loaded")
	}
	return s.view.RenderAnnotated()
}

// Page returns the whole document with the client script injected.
func (s *Server) Page() (string, error) {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return "", errors.New("P300").WithDetail("no template loaded")
	}
	page, err := s.compiler.Document().RenderAnnotated(s.doc)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	return injectScript(page), nil
}

// Handler returns the HTTP handler serving the preview.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	return s.hub.count()
}

// ListenAndServe serves on addr until ctx is cancelled. When watching is
// enabled the template file is watched for the same lifetime.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if s.cfg.Watch {
		if err := s.Watch(ctx); err != nil {
			s.logger.Warn("watching disabled", "error", err)
		}
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	s.logger.Info("preview running", "url", "http://"+addr)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		s.Close()
		if err != nil {
			return errors.New("P300").Wrap(err)
		}
		return nil
	}

	s.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// Close disconnects all clients and destroys the view.
func (s *Server) Close() {
	s.hub.close()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != nil {
		s.view.Destroy()
		s.view = nil
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handlePage)
	r.Get("/ws", s.handleWebSocket)
	r.Get("/scope", s.handleScope)
	if s.cfg.Metrics {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	page, err := s.Page()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
}

func (s *Server) handleScope(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var data map[string]any
	if s.scope != nil {
		data = s.scope.ToMap()
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encoding scope failed", "error", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	onConnect := func(conn *websocket.Conn) {
		markup, err := s.Snapshot()
		if err != nil {
			s.hub.send(conn, ServerMessage{Type: TypeError, Error: err.Error()})
			return
		}
		s.hub.send(conn, ServerMessage{Type: TypeRender, HTML: markup})
	}
	s.hub.serve(w, r, onConnect, func(msg ClientMessage) *ServerMessage {
		if err := s.Apply(msg); err != nil {
			s.logger.Debug("client message rejected", "type", msg.Type, "error", err)
			return &ServerMessage{Type: TypeError, Error: err.Error()}
		}
		return nil
	})
}

func injectScript(page string) string {
	tag := "<script>" + ClientScript + "</script>"
	if i := strings.LastIndex(page, "</body>"); i >= 0 {
		return page[:i] + tag + page[i:]
	}
	return page + tag
}

package compiler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"

	"github.com/vango-dev/fbind/internal/errors"
	"github.com/vango-dev/fbind/pkg/dom"
	"github.com/vango-dev/fbind/pkg/observe"
	"github.com/vango-dev/fbind/pkg/scope"
	"github.com/vango-dev/fbind/pkg/watch"
)

// Subscription is a live binding created by a Notifier.
type Subscription = watch.Subscription

// Notifier evaluates an expression against a scope, calls fn with the
// current value before returning, and again after every change to data the
// expression reads. A run that fails to evaluate, or whose fn panics, is
// passed to onError instead.
type Notifier interface {
	Subscribe(expression string, s scope.Scope, fn func(any), onError func(error)) (Subscription, error)
}

// Handler compiles one directive on n. Returned errors are reported and do
// not stop compilation.
type Handler func(c *Compilation, n *html.Node, s scope.Scope, d Directive, expression string) error

// Compiler compiles templates. One Compiler owns the identifier counter and
// the Document for every tree it mounts. It is safe for concurrent use, but
// a mounted tree must only be mutated by one goroutine at a time.
type Compiler struct {
	classifier Classifier
	handlers   map[Kind]Handler
	notifier   Notifier
	logger     *slog.Logger
	metrics    *observe.Metrics
	tracer     trace.Tracer
	stripAll   bool
	doc        *dom.Document

	mu     sync.Mutex
	nextID int
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger for directive errors.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records compilation and updates in m.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Compiler) {
		c.metrics = m
	}
}

// WithTracer sets the tracer for mount spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Compiler) {
		c.tracer = t
	}
}

// WithNotifier replaces the default change notifier.
func WithNotifier(n Notifier) Option {
	return func(c *Compiler) {
		c.notifier = n
	}
}

// WithHandler registers h for kind, replacing any default handler.
// There is no default handler for KindFor.
func WithHandler(kind Kind, h Handler) Option {
	return func(c *Compiler) {
		c.handlers[kind] = h
	}
}

// WithClassifier sets the directive syntax.
func WithClassifier(cl Classifier) Option {
	return func(c *Compiler) {
		c.classifier = cl
	}
}

// WithStripAllAttributes removes every attribute of a compiled element, not
// just directives.
func WithStripAllAttributes(strip bool) Option {
	return func(c *Compiler) {
		c.stripAll = strip
	}
}

// WithDocument shares doc between compilers.
func WithDocument(doc *dom.Document) Option {
	return func(c *Compiler) {
		if doc != nil {
			c.doc = doc
		}
	}
}

// New creates a Compiler with the default handlers and a watch.Watcher as
// notifier.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		classifier: DefaultClassifier(),
		handlers:   defaultHandlers(),
		logger:     slog.Default(),
		tracer:     observe.Tracer(nil),
		doc:        dom.NewDocument(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.notifier == nil {
		c.notifier = watch.New(watch.WithLogger(c.logger))
	}
	return c
}

// Document returns the document holding identifiers and listeners for
// every tree this compiler mounted.
func (c *Compiler) Document() *dom.Document {
	return c.doc
}

// Classifier returns the directive syntax in use.
func (c *Compiler) Classifier() Classifier {
	return c.classifier
}

// Mount compiles the children of container against s and returns the live
// view. Comments and whitespace-only text are removed from the container;
// the remaining children are compiled in a detached fragment and then
// reattached. Directive errors do not fail the mount; see View.Errors.
func (c *Compiler) Mount(ctx context.Context, container *html.Node, s scope.Scope) (*View, error) {
	target := describe(container)
	_, span := observe.StartMount(ctx, c.tracer, target)
	start := time.Now()

	if container == nil || (container.Type != html.ElementNode && container.Type != html.DocumentNode) {
		err := errors.New("B009").WithDetailf("cannot mount into %s", target)
		observe.EndMount(span, observe.MountStats{}, err)
		return nil, err
	}
	if s == nil {
		s = scope.New(nil)
	}

	v := newView(c, container, s)
	comp := &Compilation{compiler: c, view: v}

	fragment := dom.NewFragment()
	for _, child := range dom.Children(container) {
		container.RemoveChild(child)
		if !dom.IsIgnorable(child) {
			fragment.AppendChild(child)
		}
	}

	c.assignID(container)
	comp.CompileChildren(fragment, s)
	dom.AppendChildren(container, fragment)

	stats := v.stats()
	c.metrics.ObserveMount(time.Since(start))
	observe.EndMount(span, stats, nil)
	c.logger.Debug("mounted",
		"target", target,
		"nodes", stats.Nodes,
		"bindings", stats.Bindings,
		"errors", stats.Errors,
	)
	return v, nil
}

func (c *Compiler) assignID(n *html.Node) int {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.mu.Unlock()

	c.doc.SetID(n, id)
	return id
}

func describe(n *html.Node) string {
	switch {
	case n == nil:
		return "<nil>"
	case n.Type == html.DocumentNode:
		return "#document"
	case n.Type == html.TextNode:
		return "#text"
	case n.Type != html.ElementNode:
		return "#node"
	}
	if id, ok := dom.Attr(n, "id"); ok {
		return n.Data + "#" + id
	}
	return n.Data
}

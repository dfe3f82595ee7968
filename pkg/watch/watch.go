// Package watch is the change notifier behind every binding.
//
// A Watcher evaluates an expression against a scope inside a reactive
// effect. Every signal read during evaluation becomes a dependency, so the
// callback runs once immediately and again whenever any data reachable from
// the expression changes.
package watch

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/vango-dev/fbind/internal/errors"
	"github.com/vango-dev/fbind/pkg/expr"
	"github.com/vango-dev/fbind/pkg/reactive"
	"github.com/vango-dev/fbind/pkg/scope"
)

// Subscription is a live watch. Stop ends it; the callback is never invoked
// after Stop returns.
type Subscription interface {
	Stop()
}

// ErrorHandler receives evaluation failures and recovered callback panics.
type ErrorHandler func(expression string, err error)

// Watcher creates subscriptions. It is safe for concurrent use.
type Watcher struct {
	logger  *slog.Logger
	owner   *reactive.Owner
	onError ErrorHandler

	mu    sync.Mutex
	cache map[string]*expr.Expr
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger used for evaluation failures and panics.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithErrorHandler installs a hook called for every evaluation failure and
// recovered panic, in addition to logging.
func WithErrorHandler(h ErrorHandler) Option {
	return func(w *Watcher) {
		w.onError = h
	}
}

// New creates a Watcher. Its subscriptions belong to a fresh reactive owner
// and are all stopped by Close.
func New(opts ...Option) *Watcher {
	w := &Watcher{
		logger: slog.Default(),
		owner:  reactive.NewOwner(nil),
		cache:  make(map[string]*expr.Expr),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch subscribes fn to the value of expression evaluated against s.
// fn runs before Watch returns, then after every relevant change.
// A syntax error is returned immediately; evaluation errors at run time are
// logged and that run's callback is skipped.
func (w *Watcher) Watch(expression string, s scope.Scope, fn func(any)) (Subscription, error) {
	return w.Subscribe(expression, s, fn, nil)
}

// Subscribe is Watch with a per-subscription failure hook. When onError is
// set it receives the run's evaluation error (B007) or recovered callback
// panic (B005) in place of the watcher's own log line.
func (w *Watcher) Subscribe(expression string, s scope.Scope, fn func(any), onError func(error)) (Subscription, error) {
	e, err := w.parse(expression)
	if err != nil {
		return nil, err
	}
	if w.owner.IsDisposed() {
		return nil, errors.New("B005").WithDetail("watcher is closed")
	}

	sub := &subscription{}
	reactive.WithOwner(w.owner, func() {
		sub.effect = reactive.CreateEffect(func() reactive.Cleanup {
			value, err := e.Eval(s)
			if err != nil {
				reactive.Untracked(func() {
					w.fail(expression, onError, errors.New("B007").
						WithDetailf("evaluating %q", expression).
						Wrap(err))
				})
				return nil
			}
			reactive.Untracked(func() {
				w.invoke(expression, fn, onError, value)
			})
			return nil
		})
	})
	return sub, nil
}

// Active returns the number of live subscriptions.
func (w *Watcher) Active() int {
	return w.owner.Effects()
}

// Close stops every subscription created by w. Later calls to Watch fail.
func (w *Watcher) Close() {
	w.owner.Dispose()
}

func (w *Watcher) parse(expression string) (*expr.Expr, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if e, ok := w.cache[expression]; ok {
		return e, nil
	}
	e, err := expr.Parse(expression)
	if err != nil {
		return nil, errors.New("B003").
			WithDetailf("%q", expression).
			Wrap(err)
	}
	w.cache[expression] = e
	return e, nil
}

// invoke runs fn, turning a panic into a logged binding failure so sibling
// subscriptions keep working.
func (w *Watcher) invoke(expression string, fn func(any), onError func(error), value any) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			w.fail(expression, onError, errors.New("B005").
				WithDetailf("callback for %q panicked", expression).
				Wrap(err))
		}
	}()
	fn(value)
}

func (w *Watcher) fail(expression string, onError func(error), err error) {
	if onError != nil {
		onError(err)
	} else {
		w.logger.Error("binding update failed",
			"code", errors.CodeOf(err),
			"expression", expression,
			"error", err,
		)
	}
	if w.onError != nil {
		w.onError(expression, err)
	}
}

type subscription struct {
	effect *reactive.Effect
}

func (s *subscription) Stop() {
	if s.effect != nil {
		s.effect.Dispose()
	}
}

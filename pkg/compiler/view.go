package compiler

import (
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/vango-dev/fbind/internal/errors"
	"github.com/vango-dev/fbind/pkg/dom"
	"github.com/vango-dev/fbind/pkg/observe"
	"github.com/vango-dev/fbind/pkg/scope"
)

// View is a mounted, live tree.
type View struct {
	compiler  *Compiler
	container *html.Node
	scope     scope.Scope

	mu        sync.Mutex
	subs      []Subscription
	cleanups  []func()
	roots     []*html.Node
	nodes     int
	errs      []error
	destroyed bool
}

func newView(c *Compiler, container *html.Node, s scope.Scope) *View {
	return &View{
		compiler:  c,
		container: container,
		scope:     s,
		roots:     []*html.Node{container},
	}
}

// Container returns the node the view was mounted into.
func (v *View) Container() *html.Node {
	return v.container
}

// Scope returns the scope the view evaluates against.
func (v *View) Scope() scope.Scope {
	return v.scope
}

// Document returns the document holding the view's identifiers and listeners.
func (v *View) Document() *dom.Document {
	return v.compiler.doc
}

// Render returns the current markup inside the container.
func (v *View) Render() (string, error) {
	return dom.RenderChildren(v.container)
}

// RenderAnnotated is Render with every element that has listeners carrying
// its identifier in dom.IDAttr.
func (v *View) RenderAnnotated() (string, error) {
	var b strings.Builder
	for c := v.container.FirstChild; c != nil; c = c.NextSibling {
		s, err := v.compiler.doc.RenderAnnotated(c)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// Node returns the compiled element with identifier id.
func (v *View) Node(id int) *html.Node {
	return v.compiler.doc.NodeByID(id)
}

// Dispatch delivers an event to the element with identifier id.
func (v *View) Dispatch(id int, event string, value any) error {
	n := v.Node(id)
	if n == nil {
		return errors.New("B010").WithDetailf("no element with id %d", id)
	}
	if v.compiler.doc.Dispatch(n, event, value) == 0 {
		return errors.New("B010").WithDetailf("element %d has no %q listener", id, event)
	}
	return nil
}

// Errors returns the directive and binding failures recorded so far.
func (v *View) Errors() []error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]error(nil), v.errs...)
}

// Bindings returns the number of live bindings.
func (v *View) Bindings() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subs)
}

// Destroy stops every binding and listener of the view and releases its
// nodes from the document. The tree keeps its last rendered state.
func (v *View) Destroy() {
	v.mu.Lock()
	if v.destroyed {
		v.mu.Unlock()
		return
	}
	v.destroyed = true
	subs, cleanups, roots := v.subs, v.cleanups, v.roots
	v.subs, v.cleanups = nil, nil
	v.mu.Unlock()

	for _, sub := range subs {
		sub.Stop()
	}
	for _, fn := range cleanups {
		fn()
	}
	for _, n := range roots {
		v.compiler.doc.Release(n)
	}
}

func (v *View) track(sub Subscription) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		sub.Stop()
		return
	}
	v.subs = append(v.subs, sub)
}

func (v *View) onDestroy(fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cleanups = append(v.cleanups, fn)
}

func (v *View) addRoot(n *html.Node) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.roots = append(v.roots, n)
}

func (v *View) addNode() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nodes++
}

func (v *View) addError(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errs = append(v.errs, err)
}

func (v *View) stats() observe.MountStats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return observe.MountStats{Nodes: v.nodes, Bindings: len(v.subs), Errors: len(v.errs)}
}

package compiler

import (
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/vango-dev/fbind/internal/errors"
	"github.com/vango-dev/fbind/pkg/dom"
	"github.com/vango-dev/fbind/pkg/scope"
)

// Compilation is the state of one Mount, handed to directive handlers.
type Compilation struct {
	compiler *Compiler
	view     *View
}

// Document returns the document the tree is registered in.
func (c *Compilation) Document() *dom.Document {
	return c.compiler.doc
}

// Logger returns the compiler's logger.
func (c *Compilation) Logger() *slog.Logger {
	return c.compiler.logger
}

// View returns the view being built.
func (c *Compilation) View() *View {
	return c.view
}

// Bind subscribes strategy for n to expression evaluated against s. The
// notifier applies the current value before Bind returns. Evaluation and
// update failures are recorded on the view per binding and never reach
// sibling bindings.
func (c *Compilation) Bind(n *html.Node, s scope.Scope, expression string, strategy Strategy, aux any) error {
	update := Updater(strategy)
	if update == nil {
		return errors.New("B006").WithDetailf("no update strategy %s", strategy)
	}
	comp := c.compiler
	name := strategy.String()

	d := Directive{Name: name}
	applied := false
	sub, err := comp.notifier.Subscribe(expression, s, func(value any) {
		applied = true
		if err := update(comp.doc, n, value, aux); err != nil {
			c.report(n, d, errors.FromError(err, "B005"))
			return
		}
		comp.metrics.Updated(name)
	}, func(err error) {
		c.report(n, d, err)
		// Text never keeps its interpolation source.
		if !applied && strategy == StrategyText {
			applied = true
			_ = update(comp.doc, n, nil, aux)
		}
	})
	if err != nil {
		return err
	}
	c.view.track(sub)
	comp.metrics.BindingCreated(name)
	return nil
}

// Listen registers fn for events of type typ on n for the life of the view.
func (c *Compilation) Listen(n *html.Node, typ string, fn dom.Listener) {
	remove := c.compiler.doc.AddEventListener(n, typ, fn)
	c.view.onDestroy(remove)
}

// CompileChildren compiles the children of n: element children recursively,
// non-blank text through interpolation. Other nodes are skipped.
func (c *Compilation) CompileChildren(n *html.Node, s scope.Scope) {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	for _, child := range dom.Children(n) {
		switch child.Type {
		case html.TextNode:
			text := strings.TrimSpace(child.Data)
			if text == "" {
				continue
			}
			if err := c.Bind(child, s, SynthesizeText(text), StrategyText, nil); err != nil {
				c.report(child, Directive{Kind: KindText, Name: "text"}, err)
			}
		case html.ElementNode:
			c.CompileElement(child, s)
		}
	}
}

type control struct {
	directive  Directive
	expression string
}

// CompileElement assigns n its identifier, handles and strips its
// directives, then either runs its control directive or recurses into its
// children.
func (c *Compilation) CompileElement(n *html.Node, s scope.Scope) {
	comp := c.compiler
	comp.assignID(n)
	c.view.addNode()
	comp.metrics.NodeCompiled()

	attrs := append([]html.Attribute(nil), n.Attr...)
	var ctl *control
	conflict := false
	owned := false

	for _, a := range attrs {
		d, ok := comp.classifier.Classify(a.Key)
		if a.Namespace != "" {
			ok = false
		}
		if !ok {
			if comp.stripAll {
				removeAttr(n, a)
			}
			continue
		}
		removeAttr(n, a)

		if !d.Kind.IsControl() {
			c.dispatch(n, s, d, a.Val)
			owned = owned || ownsContent(d)
			continue
		}
		switch {
		case conflict:
		case ctl == nil:
			ctl = &control{directive: d, expression: a.Val}
		case ctl.directive.Kind != d.Kind:
			c.report(n, d, errors.New("B002").
				WithDetailf("%s and %s on the same element; both ignored", ctl.directive.Attr, d.Attr))
			ctl = nil
			conflict = true
		}
	}

	if ctl != nil && c.dispatch(n, s, ctl.directive, ctl.expression) {
		return
	}
	if !owned {
		c.CompileChildren(n, s)
	}
}

// ownsContent reports whether d replaces the element's children, in which
// case the authored children are placeholder content and stay uncompiled.
func ownsContent(d Directive) bool {
	switch d.Kind {
	case KindText, KindHTML, KindMarkdown:
		return true
	case KindBind:
		switch strings.ToLower(d.Prop) {
		case "text", "textcontent", "html", "innerhtml":
			return true
		}
	}
	return false
}

// dispatch runs the handler for d and reports whether one was found.
func (c *Compilation) dispatch(n *html.Node, s scope.Scope, d Directive, expression string) bool {
	if d.Kind == KindUnknown {
		c.report(n, d, errors.New("B001").WithDetailf("%q", d.Attr))
		return false
	}
	h, ok := c.compiler.handlers[d.Kind]
	if !ok || h == nil {
		c.report(n, d, errors.New("B006").WithDetailf("%q (kind %s)", d.Attr, d.Kind))
		return false
	}
	if err := h(c, n, s, d, expression); err != nil {
		c.report(n, d, err)
	}
	return true
}

// report logs a directive or binding failure, counts it and records it on
// the view.
func (c *Compilation) report(n *html.Node, d Directive, err error) {
	comp := c.compiler
	code := errors.CodeOf(err)
	attrs := []any{"code", code, "kind", d.Name}
	if d.Attr != "" {
		attrs = append(attrs, "attr", d.Attr)
	}
	if id, ok := comp.doc.ID(n); ok {
		attrs = append(attrs, "node_id", id)
	}
	attrs = append(attrs, "error", err)
	comp.logger.Error("directive failed", attrs...)
	comp.metrics.DirectiveError(code)
	c.view.addError(err)
}

func removeAttr(n *html.Node, a html.Attribute) {
	for i, cur := range n.Attr {
		if cur.Namespace == a.Namespace && cur.Key == a.Key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

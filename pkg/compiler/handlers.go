package compiler

import (
	"reflect"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/vango-dev/fbind/internal/errors"
	"github.com/vango-dev/fbind/pkg/dom"
	"github.com/vango-dev/fbind/pkg/expr"
	"github.com/vango-dev/fbind/pkg/reactive"
	"github.com/vango-dev/fbind/pkg/scope"
)

// EventName is the name an event handler expression sees the event value under.
const EventName = "event"

func defaultHandlers() map[Kind]Handler {
	return map[Kind]Handler{
		KindText:     strategyHandler(StrategyText),
		KindHTML:     strategyHandler(StrategyHTML),
		KindMarkdown: strategyHandler(StrategyMarkdown),
		KindShow:     showHandler,
		KindAttr:     propHandler(StrategyAttr),
		KindStyle:    propHandler(StrategyStyle),
		KindBind:     bindHandler,
		KindOn:       onHandler,
		KindModel:    modelHandler,
		KindIf:       ifHandler,
	}
}

func strategyHandler(strategy Strategy) Handler {
	return func(c *Compilation, n *html.Node, s scope.Scope, _ Directive, expression string) error {
		return c.Bind(n, s, expression, strategy, nil)
	}
}

func showHandler(c *Compilation, n *html.Node, s scope.Scope, _ Directive, expression string) error {
	return c.Bind(n, s, expression, StrategyStyle, "display")
}

// propHandler binds a strategy that needs the directive's property as aux.
func propHandler(strategy Strategy) Handler {
	return func(c *Compilation, n *html.Node, s scope.Scope, d Directive, expression string) error {
		if d.Prop == "" {
			return errors.New("B003").WithDetailf("%q needs a property, as in %s:name", d.Attr, d.Attr)
		}
		return c.Bind(n, s, expression, strategy, strings.ToLower(d.Prop))
	}
}

// bindHandler maps :prop onto the strategy owning that property.
func bindHandler(c *Compilation, n *html.Node, s scope.Scope, d Directive, expression string) error {
	prop := strings.ToLower(d.Prop)
	switch prop {
	case "":
		return errors.New("B003").WithDetailf("%q binds no property", d.Attr)
	case "value":
		return c.Bind(n, s, expression, StrategyValue, nil)
	case "checked":
		return c.Bind(n, s, expression, StrategyCheckbox, nil)
	case "text", "textcontent":
		return c.Bind(n, s, expression, StrategyText, nil)
	case "html", "innerhtml":
		return c.Bind(n, s, expression, StrategyHTML, nil)
	}
	return c.Bind(n, s, expression, StrategyAttr, prop)
}

// assignment matches "path = expression" (but not "==").
var assignment = regexp.MustCompile(`(?s)^\s*([A-Za-z_][A-Za-z0-9_.]*)\s*=([^=].*)$`)

// onHandler registers a listener for the event named by the directive.
// The expression is either "path = value", which writes to the scope, or an
// expression whose value, when it is a function, is called with the event.
func onHandler(c *Compilation, n *html.Node, s scope.Scope, d Directive, expression string) error {
	if d.Prop == "" {
		return errors.New("B003").WithDetailf("%q names no event", d.Attr)
	}

	target := ""
	src := expression
	if m := assignment.FindStringSubmatch(expression); m != nil {
		target, src = m[1], m[2]
	}
	e, err := expr.Parse(src)
	if err != nil {
		return errors.New("B003").WithDetailf("%q", expression).Wrap(err)
	}

	var setter scope.Setter
	if target != "" {
		var ok bool
		if setter, ok = s.(scope.Setter); !ok {
			return errors.New("B008").WithDetailf("%q assigns %s", d.Attr, target)
		}
	}

	c.Listen(n, strings.ToLower(d.Prop), func(ev dom.Event) {
		reactive.Untracked(func() {
			local := scope.With(s, map[string]any{EventName: ev.Value})
			v, err := e.Eval(local)
			if err == nil {
				switch {
				case target != "":
					err = setter.Set(target, v)
				case v != nil && reflect.TypeOf(v).Kind() == reflect.Func:
					_, err = expr.Call(v, ev.Value)
				}
			}
			if err != nil {
				c.report(n, d, errors.FromError(err, "B007"))
			}
		})
	})
	return nil
}

// modelHandler binds a form control both ways: the value follows the scope
// path, and input events write back to it.
func modelHandler(c *Compilation, n *html.Node, s scope.Scope, d Directive, expression string) error {
	e, err := expr.Parse(expression)
	if err != nil {
		return errors.New("B003").WithDetailf("%q", expression).Wrap(err)
	}
	path, ok := e.Path()
	if !ok {
		return errors.New("B003").WithDetailf("%q is not a writable path", expression)
	}
	setter, ok := s.(scope.Setter)
	if !ok {
		return errors.New("B008").WithDetailf("%q", d.Attr)
	}
	doc := c.Document()

	if typ, _ := dom.Attr(n, "type"); n.Data == "input" && strings.EqualFold(typ, "checkbox") {
		if err := c.Bind(n, s, expression, StrategyCheckbox, nil); err != nil {
			return err
		}
		c.Listen(n, "change", func(ev dom.Event) {
			reactive.Untracked(func() {
				current, _ := e.Eval(s)
				next := toggle(current, controlIdentity(doc, n), expr.Truthy(ev.Value))
				if err := setter.Set(path, next); err != nil {
					c.report(n, d, errors.New("B008").Wrap(err))
				}
			})
		})
		return nil
	}

	if err := c.Bind(n, s, expression, StrategyValue, nil); err != nil {
		return err
	}
	input := func(ev dom.Event) {
		reactive.Untracked(func() {
			doc.SetComposing(n, true)
			defer doc.SetComposing(n, false)

			if n.Data == "textarea" {
				dom.SetTextContent(n, expr.ToString(ev.Value))
			} else {
				dom.SetAttr(n, "value", expr.ToString(ev.Value))
			}
			if err := setter.Set(path, ev.Value); err != nil {
				c.report(n, d, errors.New("B008").Wrap(err))
			}
		})
	}
	c.Listen(n, "input", input)
	if n.Data == "select" {
		c.Listen(n, "change", input)
	}
	return nil
}

// toggle returns the next model value for a checkbox: membership of id in
// a collection, or the checked state itself.
func toggle(current any, id string, checked bool) any {
	list, ok := expr.ToSlice(current)
	if !ok {
		return checked
	}
	out := make([]any, 0, len(list)+1)
	for _, v := range list {
		if expr.ToString(v) != id {
			out = append(out, v)
		}
	}
	if checked {
		out = append(out, id)
	}
	return out
}

// ifHandler compiles the element's subtree while it is still in place,
// swaps it for an empty placeholder, and binds its presence before that
// placeholder to the condition.
func ifHandler(c *Compilation, n *html.Node, s scope.Scope, d Directive, expression string) error {
	if n.Parent == nil {
		c.CompileChildren(n, s)
		return errors.New("B009").WithDetailf("%q on an element without a parent", d.Attr)
	}
	c.CompileChildren(n, s)

	anchor := dom.NewText("")
	n.Parent.InsertBefore(anchor, n)
	n.Parent.RemoveChild(n)
	c.view.addRoot(n)

	return c.Bind(n, s, expression, StrategyPresence, anchor)
}

package compiler

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"

	"github.com/vango-dev/fbind/internal/errors"
	"github.com/vango-dev/fbind/pkg/dom"
	"github.com/vango-dev/fbind/pkg/expr"
)

// Strategy selects the mutation a binding applies.
type Strategy int

const (
	StrategyText Strategy = iota
	StrategyHTML
	StrategyMarkdown
	StrategyValue
	StrategyCheckbox
	StrategyAttr
	StrategyStyle
	StrategyPresence
)

var strategyNames = [...]string{
	StrategyText:     "text",
	StrategyHTML:     "html",
	StrategyMarkdown: "markdown",
	StrategyValue:    "value",
	StrategyCheckbox: "checkbox",
	StrategyAttr:     "attr",
	StrategyStyle:    "style",
	StrategyPresence: "presence",
}

func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return "strategy(" + strconv.Itoa(int(s)) + ")"
	}
	return strategyNames[s]
}

// UpdateFunc applies value to n. aux carries strategy-specific data: the
// attribute or style property name, or the placeholder anchor for presence.
// Applying the same value twice leaves the tree as after the first call.
type UpdateFunc func(doc *dom.Document, n *html.Node, value any, aux any) error

// ErrDetachedAnchor reports a presence update whose placeholder is no
// longer in a tree.
var ErrDetachedAnchor = errors.New("B004")

var updaters = [...]UpdateFunc{
	StrategyText:     updateText,
	StrategyHTML:     updateHTML,
	StrategyMarkdown: updateMarkdown,
	StrategyValue:    updateValue,
	StrategyCheckbox: updateCheckbox,
	StrategyAttr:     updateAttr,
	StrategyStyle:    updateStyle,
	StrategyPresence: updatePresence,
}

// Updater returns the update function for s, or nil.
func Updater(s Strategy) UpdateFunc {
	if s < 0 || int(s) >= len(updaters) {
		return nil
	}
	return updaters[s]
}

func updateText(_ *dom.Document, n *html.Node, value any, _ any) error {
	text := expr.ToString(value)
	if n.Type == html.TextNode {
		n.Data = text
		return nil
	}
	if n.FirstChild != nil && n.FirstChild == n.LastChild &&
		n.FirstChild.Type == html.TextNode && n.FirstChild.Data == text {
		return nil
	}
	dom.SetTextContent(n, text)
	return nil
}

func updateHTML(_ *dom.Document, n *html.Node, value any, _ any) error {
	return dom.SetInnerHTML(n, expr.ToString(value))
}

var markdown = goldmark.New(goldmark.WithRendererOptions(gmhtml.WithUnsafe()))

func updateMarkdown(_ *dom.Document, n *html.Node, value any, _ any) error {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(expr.ToString(value)), &buf); err != nil {
		return fmt.Errorf("markdown: %w", err)
	}
	return dom.SetInnerHTML(n, buf.String())
}

// updateValue sets a form control's value. While the user is editing the
// control the update is skipped once and the flag consumed.
func updateValue(doc *dom.Document, n *html.Node, value any, _ any) error {
	if doc != nil && doc.Composing(n) {
		doc.SetComposing(n, false)
		return nil
	}
	v := ""
	if expr.Truthy(value) {
		v = expr.ToString(value)
	}

	switch n.Data {
	case "textarea":
		if dom.TextContent(n) != v {
			dom.SetTextContent(n, v)
		}
	case "select":
		dom.Walk(n, func(c *html.Node) bool {
			if c.Type == html.ElementNode && c.Data == "option" {
				setFlag(c, "selected", optionValue(c) == v)
				return false
			}
			return true
		})
	default:
		dom.SetAttr(n, "value", v)
	}
	return nil
}

func optionValue(n *html.Node) string {
	if v, ok := dom.Attr(n, "value"); ok {
		return v
	}
	return strings.TrimSpace(dom.TextContent(n))
}

// controlIdentity is what a checkbox contributes to a shared collection:
// its value attribute, or its compile-time identifier.
func controlIdentity(doc *dom.Document, n *html.Node) string {
	if v, ok := dom.Attr(n, "value"); ok && v != "" {
		return v
	}
	if doc != nil {
		if id, ok := doc.ID(n); ok {
			return strconv.Itoa(id)
		}
	}
	return ""
}

// updateCheckbox checks the control when its identity is a member of a
// collection value, or when a non-collection value is truthy.
func updateCheckbox(doc *dom.Document, n *html.Node, value any, _ any) error {
	checked := expr.Truthy(value)
	if list, ok := expr.ToSlice(value); ok {
		checked = contains(list, controlIdentity(doc, n))
	}
	setFlag(n, "checked", checked)
	return nil
}

func contains(list []any, id string) bool {
	for _, v := range list {
		if expr.ToString(v) == id {
			return true
		}
	}
	return false
}

func setFlag(n *html.Node, key string, on bool) {
	if on {
		dom.SetAttr(n, key, "")
	} else {
		dom.RemoveAttr(n, key)
	}
}

func updateAttr(_ *dom.Document, n *html.Node, value any, aux any) error {
	name, _ := aux.(string)
	if name == "" {
		return errors.New("B003").WithDetail("attribute binding without a name")
	}
	dom.SetAttr(n, name, expr.ToString(value))
	return nil
}

// updateStyle sets one inline style property. The display property maps
// truthiness to "initial" or "none" instead of writing the value.
func updateStyle(_ *dom.Document, n *html.Node, value any, aux any) error {
	prop, _ := aux.(string)
	if prop == "" {
		return errors.New("B003").WithDetail("style binding without a property")
	}
	v := expr.ToString(value)
	if prop == "display" {
		v = "none"
		if expr.Truthy(value) {
			v = "initial"
		}
	}
	dom.SetStyleProperty(n, prop, v)
	return nil
}

// updatePresence inserts n right before the anchor when value is truthy
// and detaches it otherwise. The anchor itself is never moved.
func updatePresence(_ *dom.Document, n *html.Node, value any, aux any) error {
	anchor, _ := aux.(*html.Node)
	if !expr.Truthy(value) {
		dom.Detach(n)
		return nil
	}
	if anchor == nil || anchor.Parent == nil {
		return errors.New("B004").WithDetail("cannot show element: its placeholder is not in a tree")
	}
	if n.Parent == anchor.Parent && n.NextSibling == anchor {
		return nil
	}
	dom.Detach(n)
	anchor.Parent.InsertBefore(n, anchor)
	return nil
}

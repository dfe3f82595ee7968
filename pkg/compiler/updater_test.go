package compiler

import (
	stderrors "errors"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/vango-dev/fbind/pkg/dom"
)

func render(t *testing.T, n *html.Node) string {
	t.Helper()
	s, err := dom.Render(n)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestUpdatersIdempotent(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		node     func() *html.Node
		value    any
		aux      any
		want     string
	}{
		{"text", StrategyText, func() *html.Node { return dom.NewElement("p") }, "hi", nil, "<p>hi</p>"},
		{"text nil", StrategyText, func() *html.Node { return dom.NewElement("p") }, nil, nil, "<p></p>"},
		{"html", StrategyHTML, func() *html.Node { return dom.NewElement("div") }, "<b>x</b>", nil, "<div><b>x</b></div>"},
		{"markdown", StrategyMarkdown, func() *html.Node { return dom.NewElement("div") }, "*x*", nil, "<div><p><em>x</em></p>\n</div>"},
		{"value", StrategyValue, func() *html.Node { return dom.NewElement("input") }, "v", nil, `<input value="v"/>`},
		{"value falsy", StrategyValue, func() *html.Node { return dom.NewElement("input") }, 0, nil, `<input value=""/>`},
		{"checkbox", StrategyCheckbox, func() *html.Node { return dom.NewElement("input") }, true, nil, `<input checked=""/>`},
		{"attr", StrategyAttr, func() *html.Node { return dom.NewElement("a") }, 42, "title", `<a title="42"></a>`},
		{"attr nil", StrategyAttr, func() *html.Node { return dom.NewElement("a") }, nil, "title", `<a title=""></a>`},
		{"style", StrategyStyle, func() *html.Node { return dom.NewElement("p") }, "red", "color", `<p style="color: red;"></p>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tt.node()
			update := Updater(tt.strategy)
			for i := 0; i < 2; i++ {
				if err := update(dom.NewDocument(), n, tt.value, tt.aux); err != nil {
					t.Fatalf("apply %d: %v", i+1, err)
				}
				if got := render(t, n); got != tt.want {
					t.Errorf("apply %d: got %q, want %q", i+1, got, tt.want)
				}
			}
		})
	}
}

func TestUpdateTextNode(t *testing.T) {
	n := dom.NewText("old")
	if err := Updater(StrategyText)(nil, n, 3.5, nil); err != nil {
		t.Fatal(err)
	}
	if n.Data != "3.5" {
		t.Errorf("text node = %q", n.Data)
	}
}

func TestUpdateValueSkipsWhileComposing(t *testing.T) {
	doc := dom.NewDocument()
	n := dom.NewElement("input")
	update := Updater(StrategyValue)

	doc.SetComposing(n, true)
	_ = update(doc, n, "programmatic", nil)
	if _, ok := dom.Attr(n, "value"); ok {
		t.Error("value written while composing")
	}
	if doc.Composing(n) {
		t.Error("composing flag should be consumed")
	}

	_ = update(doc, n, "programmatic", nil)
	if v, _ := dom.Attr(n, "value"); v != "programmatic" {
		t.Errorf("value = %q after flag cleared", v)
	}
}

func TestUpdateValueControls(t *testing.T) {
	nodes, err := dom.ParseFragment(`<select><option value="a">A</option><option>b</option></select><textarea>x</textarea>`, nil)
	if err != nil {
		t.Fatal(err)
	}
	sel, area := nodes[0], nodes[1]
	update := Updater(StrategyValue)

	_ = update(nil, sel, "b", nil)
	if got := render(t, sel); got != `<select><option value="a">A</option><option selected="">b</option></select>` {
		t.Errorf("select = %q", got)
	}
	_ = update(nil, sel, "a", nil)
	if got := render(t, sel); got != `<select><option value="a" selected="">A</option><option>b</option></select>` {
		t.Errorf("select = %q", got)
	}

	_ = update(nil, area, "typed", nil)
	if got := render(t, area); got != `<textarea>typed</textarea>` {
		t.Errorf("textarea = %q", got)
	}
}

func TestCheckboxMembership(t *testing.T) {
	doc := dom.NewDocument()
	update := Updater(StrategyCheckbox)
	collection := []any{"a", "b"}

	member := dom.NewElement("input")
	dom.SetAttr(member, "value", "b")
	outsider := dom.NewElement("input")
	dom.SetAttr(outsider, "value", "c")

	_ = update(doc, member, collection, nil)
	_ = update(doc, outsider, collection, nil)

	if _, ok := dom.Attr(member, "checked"); !ok {
		t.Error(`control "b" should be checked`)
	}
	if _, ok := dom.Attr(outsider, "checked"); ok {
		t.Error(`control "c" should not be checked`)
	}

	// Without a value attribute the identifier is the identity.
	anon := dom.NewElement("input")
	doc.SetID(anon, 7)
	_ = update(doc, anon, []int{3, 7}, nil)
	if _, ok := dom.Attr(anon, "checked"); !ok {
		t.Error("control with id 7 should be checked")
	}
	_ = update(doc, anon, []any{}, nil)
	if _, ok := dom.Attr(anon, "checked"); ok {
		t.Error("empty collection should uncheck")
	}
}

func TestDisplayStyle(t *testing.T) {
	n := dom.NewElement("div")
	update := Updater(StrategyStyle)

	_ = update(nil, n, false, "display")
	if v, _ := dom.StyleProperty(n, "display"); v != "none" {
		t.Errorf("display for false = %q, want none", v)
	}
	_ = update(nil, n, true, "display")
	if v, _ := dom.StyleProperty(n, "display"); v != "initial" {
		t.Errorf("display for true = %q, want initial", v)
	}
	if s, _ := dom.Attr(n, "style"); strings.Contains(s, "true") {
		t.Errorf("raw boolean written: %q", s)
	}
}

func TestPresence(t *testing.T) {
	parent := dom.NewElement("div")
	before, after := dom.NewElement("a"), dom.NewElement("b")
	anchor := dom.NewText("")
	parent.AppendChild(before)
	parent.AppendChild(anchor)
	parent.AppendChild(after)

	n := dom.NewElement("p")
	update := Updater(StrategyPresence)

	for i := 0; i < 2; i++ {
		if err := update(nil, n, true, anchor); err != nil {
			t.Fatal(err)
		}
		if n.Parent != parent || n.NextSibling != anchor {
			t.Fatalf("apply %d: node not right before the anchor", i+1)
		}
		if got := render(t, parent); got != "<div><a></a><p></p><b></b></div>" {
			t.Errorf("apply %d: %q", i+1, got)
		}
	}

	for i := 0; i < 2; i++ {
		if err := update(nil, n, false, anchor); err != nil {
			t.Fatal(err)
		}
		if n.Parent != nil {
			t.Fatalf("remove %d: node still attached", i+1)
		}
		if anchor.Parent != parent {
			t.Fatal("anchor must stay in place")
		}
	}
}

func TestPresenceDetachedAnchor(t *testing.T) {
	err := Updater(StrategyPresence)(nil, dom.NewElement("p"), true, dom.NewText(""))
	if !stderrors.Is(err, ErrDetachedAnchor) {
		t.Errorf("err = %v, want ErrDetachedAnchor", err)
	}
}

func TestMissingAux(t *testing.T) {
	n := dom.NewElement("p")
	if err := Updater(StrategyAttr)(nil, n, "x", nil); err == nil {
		t.Error("attr without a name should fail")
	}
	if err := Updater(StrategyStyle)(nil, n, "x", ""); err == nil {
		t.Error("style without a property should fail")
	}
	if Updater(Strategy(42)) != nil {
		t.Error("unknown strategy should have no updater")
	}
}

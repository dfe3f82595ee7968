package compiler

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		attr string
		want Directive
		ok   bool
	}{
		{"f-text", Directive{Kind: KindText, Name: "text", Attr: "f-text"}, true},
		{"f-md", Directive{Kind: KindMarkdown, Name: "md", Attr: "f-md"}, true},
		{"f-attr:title", Directive{Kind: KindAttr, Name: "attr", Prop: "title", Attr: "f-attr:title"}, true},
		{"f-style:color", Directive{Kind: KindStyle, Name: "style", Prop: "color", Attr: "f-style:color"}, true},
		{"f-if", Directive{Kind: KindIf, Name: "if", Attr: "f-if"}, true},
		{"f-bogus", Directive{Kind: KindUnknown, Name: "bogus", Attr: "f-bogus"}, true},
		{"f-on", Directive{Kind: KindUnknown, Name: "on", Attr: "f-on"}, true},
		{"f-", Directive{Kind: KindUnknown, Attr: "f-"}, true},
		{"@click", Directive{Kind: KindOn, Name: "on", Prop: "click", Attr: "@click"}, true},
		{":value", Directive{Kind: KindBind, Name: "bind", Prop: "value", Attr: ":value"}, true},
		{"class", Directive{}, false},
		{"data-f-text", Directive{}, false},
	}

	cl := DefaultClassifier()
	for _, tt := range tests {
		t.Run(tt.attr, func(t *testing.T) {
			got, ok := cl.Classify(tt.attr)
			if ok != tt.ok {
				t.Fatalf("Classify(%q) ok = %v, want %v", tt.attr, ok, tt.ok)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Classify(%q) mismatch (-want +got):\n%s", tt.attr, diff)
			}
		})
	}
}

func TestClassifyCustomSyntax(t *testing.T) {
	cl := Classifier{Prefix: "x-", EventMarker: "on:", BindMarker: "bind:"}

	if d, ok := cl.Classify("x-show"); !ok || d.Kind != KindShow {
		t.Errorf("x-show = %+v, %v", d, ok)
	}
	if d, ok := cl.Classify("on:submit"); !ok || d.Kind != KindOn || d.Prop != "submit" {
		t.Errorf("on:submit = %+v, %v", d, ok)
	}
	if d, ok := cl.Classify("bind:src"); !ok || d.Kind != KindBind || d.Prop != "src" {
		t.Errorf("bind:src = %+v, %v", d, ok)
	}
	if _, ok := cl.Classify("f-text"); ok {
		t.Error("default prefix should not match a custom classifier")
	}
}

func TestKind(t *testing.T) {
	for _, name := range []string{"text", "html", "md", "model", "show", "if", "for", "attr", "style"} {
		if got := ParseKind(name).String(); got != name {
			t.Errorf("ParseKind(%q).String() = %q", name, got)
		}
	}
	if !KindIf.IsControl() || !KindFor.IsControl() || KindText.IsControl() {
		t.Error("only if and for are control kinds")
	}
	if Kind(99).String() != "unknown" {
		t.Error("out of range kinds should print as unknown")
	}
}

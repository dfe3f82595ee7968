package compiler

import "strings"

// Kind identifies what a directive does.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindHTML
	KindMarkdown
	KindModel
	KindShow
	KindIf
	KindFor
	KindOn
	KindBind
	KindAttr
	KindStyle
)

var kindNames = [...]string{
	KindUnknown:  "unknown",
	KindText:     "text",
	KindHTML:     "html",
	KindMarkdown: "md",
	KindModel:    "model",
	KindShow:     "show",
	KindIf:       "if",
	KindFor:      "for",
	KindOn:       "on",
	KindBind:     "bind",
	KindAttr:     "attr",
	KindStyle:    "style",
}

// String returns the name used in prefixed directives.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// IsControl reports whether k replaces the element's own recursion.
func (k Kind) IsControl() bool {
	return k == KindIf || k == KindFor
}

// ParseKind maps a kind name to its Kind. Unrecognized names, and the
// marker-only kinds on and bind, return KindUnknown.
func ParseKind(name string) Kind {
	switch name {
	case "", "unknown", "on", "bind":
		return KindUnknown
	}
	for k, n := range kindNames {
		if n == name {
			return Kind(k)
		}
	}
	return KindUnknown
}

// Directive is one classified attribute.
type Directive struct {
	Kind Kind

	// Name is the kind as written; it differs from Kind.String() only for
	// unknown kinds.
	Name string

	// Prop is the optional property: the part after ':' for prefixed
	// directives, the event name for on, the bound property for bind.
	Prop string

	// Attr is the full attribute name.
	Attr string
}

// Classifier recognizes directive attributes.
type Classifier struct {
	Prefix      string
	EventMarker string
	BindMarker  string
}

// DefaultClassifier uses the "f-" prefix, "@" for events and ":" for bindings.
func DefaultClassifier() Classifier {
	return Classifier{Prefix: "f-", EventMarker: "@", BindMarker: ":"}
}

// Classify inspects one attribute name. It reports false for ordinary
// attributes. A directive-shaped name with an unrecognized kind classifies
// as KindUnknown.
func (c Classifier) Classify(attr string) (Directive, bool) {
	switch {
	case c.Prefix != "" && strings.HasPrefix(attr, c.Prefix):
		name, prop, _ := strings.Cut(attr[len(c.Prefix):], ":")
		return Directive{Kind: ParseKind(name), Name: name, Prop: prop, Attr: attr}, true

	case c.EventMarker != "" && strings.HasPrefix(attr, c.EventMarker):
		return Directive{Kind: KindOn, Name: "on", Prop: attr[len(c.EventMarker):], Attr: attr}, true

	case c.BindMarker != "" && strings.HasPrefix(attr, c.BindMarker):
		return Directive{Kind: KindBind, Name: "bind", Prop: attr[len(c.BindMarker):], Attr: attr}, true
	}
	return Directive{}, false
}

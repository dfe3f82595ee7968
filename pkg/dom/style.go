package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// StyleProperty returns the inline style property prop of n.
func StyleProperty(n *html.Node, prop string) (string, bool) {
	style, _ := Attr(n, "style")
	for _, decl := range parseStyle(style) {
		if decl[0] == prop {
			return decl[1], true
		}
	}
	return "", false
}

// SetStyleProperty sets inline style property prop. An empty value removes
// it, and the style attribute is dropped once no declaration is left.
func SetStyleProperty(n *html.Node, prop, value string) {
	style, _ := Attr(n, "style")
	decls := parseStyle(style)

	found := false
	out := decls[:0]
	for _, decl := range decls {
		if decl[0] == prop {
			found = true
			if value == "" {
				continue
			}
			decl[1] = value
		}
		out = append(out, decl)
	}
	if !found && value != "" {
		out = append(out, [2]string{prop, value})
	}

	if len(out) == 0 {
		RemoveAttr(n, "style")
		return
	}
	parts := make([]string, len(out))
	for i, decl := range out {
		parts[i] = decl[0] + ": " + decl[1]
	}
	SetAttr(n, "style", strings.Join(parts, "; ")+";")
}

// parseStyle splits a style attribute into ordered (property, value) pairs.
func parseStyle(style string) [][2]string {
	var decls [][2]string
	for _, part := range strings.Split(style, ";") {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.TrimSpace(value)
		if prop == "" {
			continue
		}
		decls = append(decls, [2]string{prop, value})
	}
	return decls
}

package compiler

import (
	"regexp"
	"strconv"
	"strings"
)

var interpolation = regexp.MustCompile(`(?s)\{\{(.*?)\}\}`)

// SynthesizeText converts text containing {{ }} interpolations into a
// single expression concatenating quoted literals and the interpolated
// expressions, in order. Text without interpolations becomes one quoted
// literal. An unterminated marker stays literal text and a blank {{ }}
// contributes nothing.
//
//	SynthesizeText("Hi {{name}}!") == `"Hi " + (name) + "!"`
func SynthesizeText(text string) string {
	matches := interpolation.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return strconv.Quote(text)
	}

	type segment struct {
		src    string
		isExpr bool
	}
	var segments []segment
	var literal strings.Builder
	last := 0
	for _, m := range matches {
		literal.WriteString(text[last:m[0]])
		last = m[1]
		e := strings.TrimSpace(text[m[2]:m[3]])
		if e == "" {
			continue
		}
		if literal.Len() > 0 {
			segments = append(segments, segment{src: literal.String()})
			literal.Reset()
		}
		segments = append(segments, segment{src: e, isExpr: true})
	}
	literal.WriteString(text[last:])
	if literal.Len() > 0 {
		segments = append(segments, segment{src: literal.String()})
	}

	switch {
	case len(segments) == 0:
		return `""`
	case len(segments) == 1 && segments[0].isExpr:
		return segments[0].src
	case len(segments) == 1:
		return strconv.Quote(segments[0].src)
	}
	parts := make([]string, len(segments))
	for i, seg := range segments {
		if seg.isExpr {
			parts[i] = "(" + seg.src + ")"
		} else {
			parts[i] = strconv.Quote(seg.src)
		}
	}
	return strings.Join(parts, " + ")
}

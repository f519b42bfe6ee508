// Package binding splits template text into literal segments and binding expressions.
//
// A binding is any text inside {{...}} or [[...]]. The two delimiter styles are
// interchangeable: the first traditionally marks a two-way binding and the second a one-way
// binding, but a server-side render has no way back to the model so both render the same.
// The content of a binding may not contain square or curly brackets, which keeps the
// delimiters from nesting; anything that does not match is plain text.
//
// The functions in this package are pure and do not depend on the polyrender package.
package binding

import (
	"regexp"
	"strings"
)

// Delimiter identifies which bracket style a binding used.
type Delimiter int

const (
	NoDelimiter Delimiter = iota
	Curly
	Square
)

// Kind distinguishes literal text from binding expressions.
type Kind int

const (
	Literal Kind = iota
	Expression
)

// Segment is one piece of a split string.
type Segment struct {
	Kind Kind
	// Value is the literal text, or the trimmed expression for a binding.
	Value string
	// Raw is the segment exactly as it appeared in the source, delimiters included.
	Raw       string
	Delimiter Delimiter
}

var (
	bindingRegex = regexp.MustCompile(`\[\[([^\[\]\{\}]+?)\]\]|\{\{([^\[\]\{\}]+?)\}\}`)
	dashRegex     = regexp.MustCompile(`-([a-z])`)
)

// DynamicSuffix marks an attribute that takes part in two-way binding, e.g. class$="{{c}}".
const DynamicSuffix = "$"

// Extract splits text into literal and expression segments in source order.
// Adjacent literal text is never split, and an empty string yields no segments.
func Extract(text string) []Segment {
	var segments []Segment
	lastEnd := 0

	for _, m := range bindingRegex.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > lastEnd {
			segments = append(segments, Segment{
				Kind:  Literal,
				Value: text[lastEnd:m[0]],
				Raw:   text[lastEnd:m[0]],
			})
		}

		seg := Segment{Kind: Expression, Raw: text[m[0]:m[1]]}
		if m[2] >= 0 {
			seg.Delimiter = Square
			seg.Value = strings.TrimSpace(text[m[2]:m[3]])
		} else {
			seg.Delimiter = Curly
			seg.Value = strings.TrimSpace(text[m[4]:m[5]])
		}

		if seg.Value == "" {
			// whitespace only: nothing to bind
			seg = Segment{Kind: Literal, Value: seg.Raw, Raw: seg.Raw}
		}
		segments = appendSegment(segments, seg)
		lastEnd = m[1]
	}

	if lastEnd < len(text) {
		segments = appendSegment(segments, Segment{
			Kind:  Literal,
			Value: text[lastEnd:],
			Raw:   text[lastEnd:],
		})
	}
	return segments
}

func appendSegment(segments []Segment, seg Segment) []Segment {
	if seg.Kind == Literal && len(segments) > 0 && segments[len(segments)-1].Kind == Literal {
		last := &segments[len(segments)-1]
		last.Value += seg.Value
		last.Raw += seg.Raw
		return segments
	}
	return append(segments, seg)
}

// HasBindings reports whether text contains at least one binding.
func HasBindings(text string) bool {
	for _, seg := range Extract(text) {
		if seg.Kind == Expression {
			return true
		}
	}
	return false
}

// CamelCase converts a dash-case attribute name to camelCase: "my-name" becomes "myName".
func CamelCase(name string) string {
	return dashRegex.ReplaceAllStringFunc(name, func(m string) string {
		return strings.ToUpper(m[1:])
	})
}

// StripDynamic removes the dynamic binding marker from an attribute name.
func StripDynamic(name string) string {
	return strings.TrimSuffix(name, DynamicSuffix)
}

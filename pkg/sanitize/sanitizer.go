// Package sanitize normalizes raw attribute values into forms each encoder can
// write safely.
package sanitize

import (
	"strings"

	"github.com/dd0wney/cluso-graphize/pkg/graph"
)

// Policy selects the normalization applied to a value
type Policy uint8

const (
	// TextSafe makes values safe inside a quoted single-line text field.
	TextSafe Policy = iota
	// Structured renders non-primitive values as strings for JSON and remote encoders.
	Structured
)

// TimestampLayout is the layout timestamps are rendered with
const TimestampLayout = "2006-01-02 15:04:05.999999999Z07:00"

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// SanitizeText replaces double quotes with single quotes and line breaks
// with a single space.
func SanitizeText(s string) string {
	if !strings.ContainsAny(s, "\"\r\n") {
		return s
	}
	s = strings.ReplaceAll(s, `"`, `'`)
	return lineBreaks.Replace(s)
}

// Sanitize normalizes a value for the given policy. It never fails: values of
// an unexpected shape come back as graph.Null so the attribute is omitted.
// Applying the same policy twice gives the same result as applying it once.
func Sanitize(value graph.Value, policy Policy) graph.Value {
	switch policy {
	case TextSafe:
		return textSafe(value)
	case Structured:
		return structured(value)
	default:
		return graph.Null()
	}
}

func textSafe(value graph.Value) graph.Value {
	switch value.Type() {
	case graph.TypeText:
		s, _ := value.AsText()
		return graph.TextValue(SanitizeText(s))
	case graph.TypeNumber, graph.TypeBool:
		return value
	case graph.TypeTimestamp:
		return graph.TextValue(formatTimestamp(value))
	case graph.TypeGeometry, graph.TypeOpaque:
		return graph.TextValue(SanitizeText(value.String()))
	default:
		return graph.Null()
	}
}

func structured(value graph.Value) graph.Value {
	switch value.Type() {
	case graph.TypeText, graph.TypeNumber, graph.TypeBool:
		return value
	case graph.TypeTimestamp:
		return graph.TextValue(formatTimestamp(value))
	case graph.TypeGeometry, graph.TypeOpaque:
		return graph.TextValue(value.String())
	default:
		return graph.Null()
	}
}

func formatTimestamp(value graph.Value) string {
	t, err := value.AsTimestamp()
	if err != nil || t.IsZero() {
		return ""
	}
	return t.Format(TimestampLayout)
}

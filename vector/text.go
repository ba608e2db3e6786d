package vector

import (
	"strconv"
	"strings"
)

// ParseText decodes a bracket-delimited, comma-separated list of decimal
// numbers such as "[0.1, 0.2, -0.3]". The enclosing brackets are optional.
// Every token must parse as a float32: empty text, an empty list and values
// outside the float32 range are malformed.
func ParseText(text string) ([]float32, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	parts := strings.Split(s, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		f, err := strconv.ParseFloat(p, 32)
		if err != nil {
			return nil, &MalformedVectorError{Text: text, Token: p, Position: i, Err: err}
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

// FormatText encodes vec in the same bracket form ParseText accepts, using
// ", " separators and the shortest float32 representation of each value.
// Integral values keep a trailing ".0" ("[1.0, 0.0]"). A nil vector encodes as
// the empty string.
func FormatText(vec []float32) string {
	if vec == nil {
		return ""
	}
	var b strings.Builder
	b.Grow(len(vec)*12 + 2)
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(formatFloat(v))
	}
	b.WriteByte(']')
	return b.String()
}

func formatFloat(v float32) string {
	s := strconv.FormatFloat(float64(v), 'g', -1, 32)
	if strings.ContainsAny(s, ".eIN") {
		return s
	}
	return s + ".0"
}

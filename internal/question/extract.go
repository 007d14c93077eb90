package question

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minSpanLen    = 20
	maxSpanLen    = 600
	splitLineLen  = 200
	spanKeyLength = 60
)

// spanIndicators is broader than mathMarkers: extraction favors recall and
// IsValid filters afterwards.
var spanIndicators = []string{
	"∫", "∑", "∏", "√", "→", "≤", "≥", "≠", "∞",
	"$", "^2", "^3", "lim(", "lim_", "dx", "dy", "dz",
	"sin(", "cos(", "tan(", "cot(", "sec(", "log(", "ln(", "f(x)",
	"matrix", "determinant", "vector",
	"eccentricity", "foci", "focus", "ellipse", "parabola", "hyperbola",
	"chord", "tangent", "asymptote", "directrix",
	"integral", "derivative", "differentia", "integra",
	"polynomial", "quadratic", "roots", "coefficient",
	"complex number", "modulus", "argument",
	"probability", "binomial", "permutation", "combination",
	"progression", "sequence", "series",
}

var spanStarters = append(slices.Clone(questionPrefixes),
	"an ", "two ", "three ", "from ", "in a ", "p(",
)

// Span is a question-like fragment lifted from raw text.
type Span struct {
	Text      string
	SourceURL string
}

// ExtractSpans pulls question-like fragments out of free text. Lines are
// taken as candidates; lines longer than 200 runes are further split at
// sentence ends. Candidates are deduplicated on their first 60 lower-cased
// runes.
func ExtractSpans(content, sourceURL string) []Span {
	var candidates []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > splitLineLen {
			candidates = append(candidates, splitSentences(line)...)
			continue
		}
		candidates = append(candidates, line)
	}

	var spans []Span
	seen := make(map[string]bool)
	for _, cand := range candidates {
		n := utf8.RuneCountInString(cand)
		if n < minSpanLen || n > maxSpanLen {
			continue
		}
		lower := strings.ToLower(cand)
		if containsAny(lower, boilerplatePhrases) {
			continue
		}
		key := prefixRunes(lower, spanKeyLength)
		if seen[key] {
			continue
		}
		if strings.HasSuffix(cand, "?") || hasAnyPrefix(lower, spanStarters) || containsAny(cand, spanIndicators) {
			seen[key] = true
			spans = append(spans, Span{Text: cand, SourceURL: sourceURL})
		}
	}
	return spans
}

// splitSentences breaks s after every '.' or '?' that is followed by
// whitespace.
func splitSentences(s string) []string {
	var (
		out   []string
		start int
	)
	runes := []rune(s)
	for i := 0; i < len(runes)-1; i++ {
		if (runes[i] == '.' || runes[i] == '?') && unicode.IsSpace(runes[i+1]) {
			if part := strings.TrimSpace(string(runes[start : i+1])); part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	if part := strings.TrimSpace(string(runes[start:])); part != "" {
		out = append(out, part)
	}
	return out
}

func prefixRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}

package question

import (
	"strings"
	"unicode/utf8"
)

const (
	minQuestionLen = 15
	maxQuestionLen = 450
)

// boilerplatePhrases mark scraped article text rather than a question.
var boilerplatePhrases = []string{
	"the document contains",
	"this document",
	"pdf includes",
	"pdf contains",
	"detailing various",
	"includes different types",
	"collection of",
	"set of questions",
	"click here",
	"download",
	"subscribe",
	"all rights reserved",
	"the following questions",
}

// questionPrefixes are matched case-insensitively against the start.
var questionPrefixes = []string{
	"find", "evaluate", "calculate", "compute", "prove", "show", "determine",
	"if ", "let ", "for ", "given", "solve", "integrate", "differentiate",
	"a ", "the ", "which", "what", "how", "when", "using", "without",
	"suppose", "consider",
}

// mathMarkers are matched case-sensitively anywhere in the text.
var mathMarkers = []string{
	"∫", "∑", "∏", "√", "²", "³", "^", "dx", "dy", "$", `\frac`, "P(",
	"≤", "≥", "≠", "∞", "→",
}

// IsValid reports whether text looks like a real practice question.
func IsValid(text string) bool {
	t := strings.TrimSpace(text)
	n := utf8.RuneCountInString(t)
	if n < minQuestionLen || n > maxQuestionLen {
		return false
	}

	lower := strings.ToLower(t)
	if containsAny(lower, boilerplatePhrases) {
		return false
	}

	if strings.HasSuffix(t, "?") {
		return true
	}
	if hasAnyPrefix(lower, questionPrefixes) {
		return true
	}
	return containsAny(t, mathMarkers)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

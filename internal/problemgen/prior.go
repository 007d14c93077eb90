package problemgen

import (
	"fmt"
	"strings"

	"github.com/abhisek/cognify/internal/question"
)

// priorRunes caps each already-asked question quoted in the prompt.
const priorRunes = 160

// buildPriorList renders the questions the learner has already seen so the
// model does not repeat them. Repeats by normalized text are dropped and
// only the most recent max are kept. Returns "None" for an empty list.
func buildPriorList(prior []string, max int) string {
	seen := make(map[string]bool, len(prior))
	unique := make([]string, 0, len(prior))
	for i := len(prior) - 1; i >= 0; i-- {
		key := question.NormalizeText(prior[i])
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, prior[i])
		if max > 0 && len(unique) == max {
			break
		}
	}
	if len(unique) == 0 {
		return "None"
	}

	var b strings.Builder
	for i := len(unique) - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "%d. %s\n", len(unique)-i, clip(strings.TrimSpace(unique[i]), priorRunes))
	}
	return strings.TrimRight(b.String(), "\n")
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

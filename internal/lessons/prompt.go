package lessons

import (
	"fmt"
	"strings"

	"github.com/abhisek/cognify/internal/conceptgraph"
)

const lessonSystemPrompt = `You are a JEE Mathematics tutor. A student is struggling and needs a focused sixty-second lesson. Keep it clear and beginner-friendly. Use plain text math with ^ for powers and sqrt() for roots.`

func buildLessonUserMessage(input LessonInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Concept: %s\n", input.Concept.Name())
	if input.Concept.Topic != "" {
		fmt.Fprintf(&b, "Topic: %s\n", input.Concept.Topic)
	}
	if input.StruggledWith != "" && input.StruggledWith != input.Concept.ID {
		fmt.Fprintf(&b, "The student is stuck on %s, and this prerequisite is the weak link.\n",
			conceptgraph.ReadableID(input.StruggledWith))
	}
	if input.LearnerContext != "" {
		b.WriteString("\nLearner context:\n")
		b.WriteString(input.LearnerContext)
		b.WriteString("\n")
	}

	b.WriteString(`
Cover:
1. The core idea in 2-3 sentences.
2. The key formula or rule.
3. One worked example with numbered steps.`)

	return b.String()
}

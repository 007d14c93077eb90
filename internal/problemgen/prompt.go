package problemgen

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an expert JEE Mathematics setter writing practice problems.

Rules:
- Write problems on exactly the given concept at the requested difficulty (1 = direct formula use, 5 = JEE Advanced multi-step).
- Each problem must be self-contained and end with a clear question or instruction.
- Use plain text math with ^ for powers, sqrt() for roots and / for fractions. No LaTeX.
- Mix formats: "mcq" problems carry exactly 4 options lettered A-D with exactly one correct; "numerical" problems carry a single final answer.
- Distractors should reflect common mistakes, not random values.
- Keep every problem distinct from each other and from the "already asked" list.`

const classifySystemPrompt = `You are a JEE Mathematics expert. Classify the question you are given.
Report its answer format, a difficulty from 1 to 5 and the snake_case concept keys it exercises, most specific first.`

// buildUserMessage constructs the generation prompt from input and cfg.
func buildUserMessage(input GenerateInput, n int, cfg Config) string {
	lo, hi := input.difficultyRange()
	c := input.Concept

	var b strings.Builder
	fmt.Fprintf(&b, "Concept: %s (%s)\n", c.Name(), c.ID)
	if c.Topic != "" {
		fmt.Fprintf(&b, "Topic: %s", c.Topic)
		if c.Subtopic != "" {
			fmt.Fprintf(&b, " / %s", c.Subtopic)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Count: %d\n", n)
	if lo == hi {
		fmt.Fprintf(&b, "Difficulty: %d\n", lo)
	} else {
		fmt.Fprintf(&b, "Difficulty: between %d and %d\n", lo, hi)
	}

	b.WriteString("\nAlready asked:\n")
	b.WriteString(buildPriorList(input.PriorQuestions, cfg.MaxPriorQuestions))

	if input.LearnerContext != "" {
		b.WriteString("\n\nLearner context:\n")
		b.WriteString(input.LearnerContext)
	}

	return b.String()
}

func buildClassifyMessage(text, concept string) string {
	var b strings.Builder
	if concept != "" {
		fmt.Fprintf(&b, "Found while searching for: %s\n\n", concept)
	}
	fmt.Fprintf(&b, "Question: %s", text)
	return b.String()
}

package grading

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/abhisek/cognify/internal/question"
)

// Local grades without a model when the answer key settles it: a single
// option letter against an MCQ key, or two plain numbers. ok is false
// when the model must decide.
func Local(q *question.Question, answer string) (Result, bool) {
	answer = strings.TrimSpace(answer)

	switch a := q.Answer.(type) {
	case question.MCQ:
		letter, isLetter := optionLetter(answer)
		if !isLetter || a.CorrectOption == "" {
			return Result{}, false
		}
		correct := strings.EqualFold(letter, a.CorrectOption)
		return Result{
			IsCorrect:     correct,
			CorrectAnswer: a.Text(),
			Explanation:   mcqExplanation(correct, a),
			Local:         true,
		}, true

	case question.Numerical:
		if a.CorrectAnswer == "" {
			return Result{}, false
		}
		want, err := parseNumber(a.CorrectAnswer)
		if err != nil {
			return Result{}, false
		}
		got, err := parseNumber(answer)
		if err != nil {
			return Result{}, false
		}
		correct := numbersEqual(got, want)
		r := Result{IsCorrect: correct, CorrectAnswer: a.CorrectAnswer, Local: true}
		if !correct {
			r.Explanation = fmt.Sprintf("The expected answer is %s.", a.CorrectAnswer)
		}
		return r, true
	}
	return Result{}, false
}

// optionLetter accepts "b", "B", "(B)" or "B)".
func optionLetter(s string) (string, bool) {
	s = strings.Trim(s, "()[]. ")
	if len(s) != 1 {
		return "", false
	}
	c := s[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'Z' {
		return "", false
	}
	return string(c), true
}

func mcqExplanation(correct bool, a question.MCQ) string {
	if correct {
		return ""
	}
	return fmt.Sprintf("The correct option is %s.", a.Text())
}

// parseNumber reads an integer, decimal or a/b fraction.
func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid numerator: %w", err)
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid denominator: %w", err)
		}
		if d == 0 {
			return 0, fmt.Errorf("zero denominator")
		}
		v := n / d
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("invalid number %q", s)
		}
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

func numbersEqual(a, b float64) bool {
	diff := math.Abs(a - b)
	if diff <= 1e-9 {
		return true
	}
	return diff <= 1e-6*math.Max(math.Abs(a), math.Abs(b))
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/cognify/internal/question"
	"github.com/abhisek/cognify/internal/session"
	"github.com/abhisek/cognify/internal/ui/theme"
)

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Run practice requests from the terminal",
}

var practiceStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a practice session and print the served questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetInt64("user")
		concept, _ := cmd.Flags().GetString("concept")
		n, _ := cmd.Flags().GetInt("n")
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Log.Sync()
		defer a.Close()

		resp, err := a.Orchestrator.StartSession(commandContext(cmd), session.StartRequest{
			UserID:  user,
			Concept: concept,
			N:       n,
		})
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(resp)
		}

		fmt.Println(theme.Title.Render("Session " + resp.SessionID))
		fmt.Printf("%s %s   %s %.1f   %s %d–%d\n",
			theme.Label.Render("concept"), resp.Concept,
			theme.Label.Render("skill"), resp.Skill,
			theme.Label.Render("band"), resp.DifficultyBand[0], resp.DifficultyBand[1])
		if c := resp.LearnerState.Context(); c != "" {
			fmt.Println(theme.Hint.Render(c))
		}
		fmt.Println()
		for i, q := range resp.Questions {
			fmt.Println(theme.Card.Render(renderQuestion(i+1, q)))
		}
		return nil
	},
}

var practiceAnswerCmd = &cobra.Command{
	Use:   "answer <question-id> <answer>",
	Short: "Grade an answer and update the learner's skill",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var qid int64
		if _, err := fmt.Sscanf(args[0], "%d", &qid); err != nil {
			return fmt.Errorf("invalid question ID %q: %w", args[0], err)
		}
		user, _ := cmd.Flags().GetInt64("user")
		timeTaken, _ := cmd.Flags().GetFloat64("time")
		retries, _ := cmd.Flags().GetInt("retries")
		hint, _ := cmd.Flags().GetBool("hint")
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Log.Sync()
		defer a.Close()

		resp, err := a.Orchestrator.SubmitAnswer(commandContext(cmd), session.AnswerRequest{
			UserID:     user,
			QuestionID: qid,
			Answer:     strings.Join(args[1:], " "),
			TimeTaken:  timeTaken,
			Retries:    retries,
			HintUsed:   hint,
		})
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(resp)
		}

		fmt.Println(theme.Verdict(resp.IsCorrect))
		if resp.CorrectAnswer != "" {
			fmt.Printf("%s %s\n", theme.Label.Render("answer"), resp.CorrectAnswer)
		}
		if resp.Explanation != "" {
			fmt.Println(resp.Explanation)
		}
		fmt.Printf("%s %.4f   %s %.1f → %.1f (%+.2f)\n",
			theme.Label.Render("cms"), resp.CMS,
			theme.Label.Render("skill"), resp.OldSkill, resp.NewSkill, resp.SkillDelta)

		if r := resp.Remediation; r != nil {
			fmt.Println()
			fmt.Println(theme.Warning.Render(resp.Message))
			fmt.Println(theme.Heading.Render(r.LessonTitle))
			fmt.Println(r.Lesson)
			for i, q := range r.GuidedQuestions {
				fmt.Println(theme.Card.Render(renderQuestion(i+1, q)))
			}
			return nil
		}
		fmt.Println(theme.Hint.Render(resp.Message))
		return nil
	},
}

func renderQuestion(n int, q question.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", theme.Heading.Render(fmt.Sprintf("Q%d", n)),
		theme.Label.Render(fmt.Sprintf("#%d · difficulty %d · %s", q.ID, q.Difficulty, q.Provenance)))
	b.WriteString(q.Text)
	if len(q.Options) > 0 {
		b.WriteString("\n")
		m := question.MCQ{Options: q.Options}
		for _, l := range m.Letters() {
			fmt.Fprintf(&b, "\n%s) %s", l, q.Options[l])
		}
	}
	return b.String()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	for _, c := range []*cobra.Command{practiceStartCmd, practiceAnswerCmd} {
		c.Flags().Int64P("user", "u", 1, "Learner ID")
		c.Flags().Bool("json", false, "Print the raw response as JSON")
	}
	practiceStartCmd.Flags().StringP("concept", "c", session.Adaptive, "Concept ID, or \"adaptive\"")
	practiceStartCmd.Flags().IntP("n", "n", 5, "Number of questions")

	practiceAnswerCmd.Flags().Float64P("time", "t", 0, "Seconds taken to answer")
	practiceAnswerCmd.Flags().IntP("retries", "r", 0, "Number of retries")
	practiceAnswerCmd.Flags().Bool("hint", false, "A hint was used")

	practiceCmd.AddCommand(practiceStartCmd)
	practiceCmd.AddCommand(practiceAnswerCmd)
}

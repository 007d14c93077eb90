package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/cognify/internal/app"
	"github.com/abhisek/cognify/internal/conceptgraph"
	"github.com/abhisek/cognify/internal/rating"
	"github.com/abhisek/cognify/internal/ui/theme"
)

var conceptsCmd = &cobra.Command{
	Use:   "concepts",
	Short: "List concepts with banked question counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		topic, _ := cmd.Flags().GetString("topic")
		user, _ := cmd.Flags().GetInt64("user")

		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		defer log.Sync()
		graph, err := app.LoadGraph(cfg)
		if err != nil {
			return err
		}
		st, err := app.OpenStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		counts, err := st.Questions().CountsByConcept(ctx)
		if err != nil {
			return fmt.Errorf("count questions: %w", err)
		}
		var skills map[string]float64
		if user > 0 {
			if skills, err = st.Skills().ForUser(ctx, user); err != nil {
				return fmt.Errorf("load skills: %w", err)
			}
		}

		topics := graph.Topics()
		if topic != "" {
			topics = []string{topic}
		}
		widths := []int{28, 36, 7, 8}
		for _, t := range topics {
			concepts := graph.ByTopic(t)
			if len(concepts) == 0 {
				continue
			}
			fmt.Println(theme.Heading.Render(t))
			fmt.Println(theme.Label.Render(theme.Row(widths, "ID", "Name", "Bank", "Skill", "Band")))
			for _, c := range concepts {
				fmt.Println(conceptRow(widths, c, counts[c.ID], skills))
			}
			fmt.Println()
		}
		return nil
	},
}

func conceptRow(widths []int, c conceptgraph.Concept, banked int, skills map[string]float64) string {
	bank := fmt.Sprint(banked)
	if banked == 0 {
		bank = theme.Warning.Render(bank)
	}
	skill, band := "-", "-"
	if r, ok := skills[c.ID]; ok {
		skill = fmt.Sprintf("%.0f", r)
		b := rating.SelectBand(r)
		band = fmt.Sprintf("%d–%d", b.Min, b.Max)
	}
	return theme.Row(widths, c.ID, c.Name(), bank, skill, band)
}

func init() {
	conceptsCmd.Flags().String("topic", "", "Only list one topic")
	conceptsCmd.Flags().Int64P("user", "u", 0, "Show a learner's skill per concept")
}

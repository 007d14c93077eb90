package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/cognify/internal/refill"
	"github.com/abhisek/cognify/internal/ui/theme"
)

var refillCmd = &cobra.Command{
	Use:   "refill [concept]",
	Short: "Top up low-stock concepts through ingestion or generation",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Log.Sync()
		defer a.Close()

		if len(args) == 1 {
			concept, err := a.Graph.Get(args[0])
			if err != nil {
				return err
			}
			n, err := a.Refiller.Concept(ctx, concept, refill.TriggerManual)
			if err != nil {
				return err
			}
			fmt.Printf("Banked %d questions for %s.\n", n, concept.ID)
			return nil
		}

		rep, err := a.Refiller.RunOnce(ctx, refill.TriggerManual)
		if err != nil {
			return err
		}
		fmt.Println(theme.Title.Render("Refill"))
		fmt.Printf("%s %d   %s %d (threshold %d)\n",
			theme.Label.Render("scanned"), rep.Scanned,
			theme.Label.Render("low stock"), len(rep.LowStock), a.Refiller.Threshold())
		if len(rep.LowStock) == 0 {
			return nil
		}

		widths := []int{32, 8}
		fmt.Println(theme.Row(widths, "Concept", "Banked", "Status"))
		fmt.Println(theme.Rule(56))
		for _, id := range rep.LowStock {
			status := theme.Correct.Render("ok")
			if err, failed := rep.Failed[id]; failed {
				status = theme.Incorrect.Render(err.Error())
			}
			fmt.Println(theme.Row(widths, id, fmt.Sprint(rep.Banked[id]), status))
		}
		fmt.Println(theme.Rule(56))
		fmt.Printf("Banked %d questions.\n", rep.Total())
		if ids := rep.FailedIDs(); len(ids) > 0 {
			fmt.Printf("Failed: %s\n", strings.Join(ids, ", "))
		}
		return nil
	},
}

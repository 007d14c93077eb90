package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/cognify/internal/app"
	"github.com/abhisek/cognify/internal/llm"
	"github.com/abhisek/cognify/internal/question"
	"github.com/abhisek/cognify/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Bank the built-in baseline questions",
	Long: "Inserts the built-in question set, skipping questions already banked. " +
		"With a remote retrieval index configured, every banked question is then embedded and upserted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
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

		qs, err := seed.Questions()
		if err != nil {
			return err
		}
		rep, err := seed.Bank(ctx, st.Questions(), graph, qs)
		if err != nil {
			return err
		}
		fmt.Printf("Seeded %d questions (%d already banked).\n", rep.Inserted, rep.Skipped)

		reindex, _ := cmd.Flags().GetBool("index")
		if cfg.Retrieval != "pinecone" && !reindex {
			return nil
		}
		embedder, err := llm.NewEmbedder(ctx, cfg.LLM)
		if err != nil {
			return fmt.Errorf("embedder: %w", err)
		}
		index, err := app.NewIndex(cfg, embedder.Dimensions(), log)
		if err != nil {
			return err
		}
		failed := 0
		n, err := app.IndexAll(ctx, st.Questions(), embedder, index, func(q *question.Question, err error) {
			if err != nil {
				failed++
				log.Warn("index question failed", "id", q.ID, "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("index questions: %w", err)
		}
		fmt.Printf("Indexed %d questions (%d failed).\n", n, failed)
		return nil
	},
}

func init() {
	seedCmd.Flags().Bool("index", false, "Embed and upsert every banked question into the retrieval index")
}

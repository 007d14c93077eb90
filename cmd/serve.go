package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/cognify/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP practice API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Log.Sync()
		defer a.Close()

		addr := a.Config.Addr
		if v, _ := cmd.Flags().GetString("addr"); v != "" {
			addr = v
		}

		a.Start(ctx)
		srv := server.New(a.Orchestrator, a.Graph, a.Store, a.Log)
		return srv.Run(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides COGNIFY_ADDR)")
}

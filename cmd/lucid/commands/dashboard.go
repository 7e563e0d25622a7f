package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/robottwo/lucid/internal/dashboard"
	"github.com/robottwo/lucid/internal/store"
	"github.com/robottwo/lucid/internal/styles"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Serve the explanation dashboard",
	Long: `Dashboard serves stored runs over HTTP. The run list links to a
per-run page showing token heatmaps for every method.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runStore, err := store.NewRunStore(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("opening run store: %w", err)
		}
		defer func() {
			_ = runStore.Close()
		}()

		server, err := dashboard.New(runStore, cfg.Dashboard.Listen, logger)
		if err != nil {
			return err
		}
		fmt.Println(styles.MUTED("dashboard listening on http://" + cfg.Dashboard.Listen + " (ctrl-c to stop)"))
		return server.Show(ctx)
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

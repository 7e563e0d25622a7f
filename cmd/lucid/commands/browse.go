package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robottwo/lucid/internal/browse"
	"github.com/robottwo/lucid/internal/store"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse stored runs in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		runStore, err := store.NewRunStore(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("opening run store: %w", err)
		}
		defer func() {
			_ = runStore.Close()
		}()
		return browse.Run(runStore)
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

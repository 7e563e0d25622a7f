package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the lucid version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("lucid " + BUILD_VERSION)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

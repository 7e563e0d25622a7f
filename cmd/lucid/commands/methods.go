package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robottwo/lucid/pkg/explain"
)

var methodsCmd = &cobra.Command{
	Use:   "methods",
	Short: "List the registered explanation methods",
	Run: func(cmd *cobra.Command, args []string) {
		for _, method := range explain.Methods() {
			fmt.Println(method)
		}
	},
}

func init() {
	rootCmd.AddCommand(methodsCmd)
}

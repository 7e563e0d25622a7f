package main

import (
	"os"

	"github.com/robottwo/lucid/cmd/lucid/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

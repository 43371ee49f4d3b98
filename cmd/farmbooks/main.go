package main

import (
	"os"

	"github.com/farmbooks-dev/farmbooks/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/budgie-app/budgie/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

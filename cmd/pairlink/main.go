package main

import (
	"os"

	"github.com/pairlink/go-pairlink/cmd/pairlink/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

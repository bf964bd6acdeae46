package main

import (
	"os"

	"github.com/wonny/spreadindex/cmd/spreadindex/commands"
)

// main is the entry point for the spread index CLI
// ⭐ unified CLI entry point: go run ./cmd/spreadindex [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

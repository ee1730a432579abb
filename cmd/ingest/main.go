package main

import (
	"os"

	"studenthousing/cmd/ingest/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

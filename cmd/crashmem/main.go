package main

import (
	"os"

	"crashmem/cmd/crashmem/commands"
)

func main() {
	// Errors are printed with color formatting by the printer package
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

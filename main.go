// ./main.go
package main

import (
	"github.com/Jai3405/vulntriage/cmd"
)

// main is the entry point for the vulntriage CLI.
func main() {
	// Execute the root command defined in the cmd package.
	// This handles all command-line parsing, configuration, and execution.
	cmd.Execute()
}

// ./main.go
package main

import (
	"github.com/asolfandco/dispatcher/cmd"
)

// main is the entry point for the dispatcher application.
func main() {
	// Execute the root command defined in the cmd package.
	// This handles all command-line parsing, configuration, and execution.
	cmd.Execute()
}

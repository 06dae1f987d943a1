// The main package for the dirscout executable.
package main

import (
	"github.com/caldera-data/dirscout/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}

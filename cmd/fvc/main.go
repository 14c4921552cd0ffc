// fvc is a file version control tool with branching, merging, and
// remote sync.
package main

import (
	"os"

	"github.com/kilupskalvis/fvc/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

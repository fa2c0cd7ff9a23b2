// Command propcheck validates property stores against a schema.
package main

import (
	"os"

	"github.com/scray/properties/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

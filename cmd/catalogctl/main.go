// Command catalogctl runs maintenance tasks against the catalog index.
package main

import (
	"os"

	"github.com/debatearchive/catalog/cmd/catalogctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

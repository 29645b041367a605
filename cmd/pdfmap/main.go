// Command pdfmap detects, fills and bundles PDF templates from the command
// line, keeping mappings in a local SQLite workspace.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// logcat - Log Ingestion Tool
//
// logcat parses log files of mixed formats into structured entries, filters
// them and summarizes what they contain.
package main

import (
	"os"

	"github.com/ccollicutt/logcat/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

// Package main is the entry point for the xbrushctl CLI
package main

import (
	"os"

	"github.com/dfryer1193/xbrush/cmd/xbrushctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}

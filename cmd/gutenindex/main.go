// Package main provides the entry point for the gutenindex CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/gutenindex/cmd/gutenindex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}

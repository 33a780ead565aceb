// Package main is the entry point for the secdash CLI tool.
package main

import (
	"os"

	"github.com/good-yellow-bee/secdash/cmd/secdashctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package main is the conceptc command.
package main

import (
	"os"

	"github.com/leapstack-labs/conceptc/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

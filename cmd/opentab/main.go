// Package main is the entry point for the opentab facilitator.
package main

import (
	"os"

	"github.com/mrz1836/opentab/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

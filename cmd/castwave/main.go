// Package main is the entry point for the castwave daemon.
package main

import (
	"os"

	"github.com/jmylchreest/castwave/cmd/castwave/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

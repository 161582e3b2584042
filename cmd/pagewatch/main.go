// Package main is the entry point for the pagewatch CLI.
package main

import (
	"os"

	"github.com/jmylchreest/pagewatch/cmd/pagewatch/commands"
	"github.com/jmylchreest/pagewatch/pkg/errdefs"
)

func main() {
	if err := commands.Execute(); err != nil {
		if errdefs.IsConfig(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/rustyeddy/strategylab/cmd/strategylab/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

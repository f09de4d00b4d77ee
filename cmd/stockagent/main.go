package main

import (
	"os"

	"github.com/harun/stockagent/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

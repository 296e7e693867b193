package main

import (
	"os"

	"github.com/meridian-labs/cogsync-cli/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

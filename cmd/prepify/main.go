// Command prepify runs the practice paper site and its maintenance tasks.
package main

import (
	"os"

	"prepify/internal/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

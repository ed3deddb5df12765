package main

import (
	"os"

	"github.com/bradyops/brady/pkg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

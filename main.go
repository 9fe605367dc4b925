package main

import (
	"os"

	"github.com/opsgate/opsgate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/pharmaflow/pharmaflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

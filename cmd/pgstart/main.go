package main

import (
	"os"

	"github.com/pgstart/pgstart/cmd/pgstart/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

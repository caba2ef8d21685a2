package main

import (
	"os"

	"github.com/robocof/robocof/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

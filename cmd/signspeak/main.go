package main

import (
	"os"

	"github.com/msto63/signspeak/cmd/signspeak/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/yklcs/areum/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/solatis/extgen/cmd/extgen/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

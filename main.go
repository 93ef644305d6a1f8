package main

import (
	"os"

	"github.com/spigell/skillbridge-matcher/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

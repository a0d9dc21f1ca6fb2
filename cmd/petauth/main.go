package main

import (
	"os"

	"github.com/sohalab/petauth/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/solatis/shelfkeeper/cmd/shelfkeeper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

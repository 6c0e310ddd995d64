package main

import (
	"os"

	"github.com/aaronparisi/technoblog/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

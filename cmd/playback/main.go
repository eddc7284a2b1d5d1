package main

import (
	"os"

	"github.com/tradeworks/playback/cmd/playback/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

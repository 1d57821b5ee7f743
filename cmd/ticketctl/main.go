package main

import (
	"os"

	"github.com/frankwiersma/speech-to-jira/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/lucasjlepore/vo2-trend/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/njyeung/iglogin/cli"
)

func main() {
	if err := cli.NewFakeProviderCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/hupe1980/literaryfinder/cmd/literaryfinder/commands"
)

// Version information, set during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	// Errors are already printed in colour by the commands.
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/domainbrowser/searchjobs/cmd/cli/commands"
)

func main() {
	// optional .env with SEARCHJOBS_* variables
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

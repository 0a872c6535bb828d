package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/kvserde/internal/cli"
	"github.com/roach88/kvserde/internal/config"
)

func main() {
	config.LoadEnvFiles()

	if err := cli.NewRootCommand().Execute(); err != nil {
		// ExitErrors have already been reported through the output formatter.
		// Anything else comes from cobra's flag and argument parsing.
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}
}

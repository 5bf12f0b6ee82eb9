package main

import (
	"os"

	"github.com/eigerco/tribunal/cmd/tribunal/cmd"
	"github.com/eigerco/tribunal/pkg/log"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		log.CLI.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

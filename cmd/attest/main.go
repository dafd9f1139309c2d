package main

import (
	"os"

	"github.com/teeverse/attestation/cmd/attest/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

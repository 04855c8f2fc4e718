// Package main provides the entry point for the amanscout CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/amanscout/cmd/amanscout/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

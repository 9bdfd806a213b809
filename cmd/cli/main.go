// Package main is the entry point for the queryd CLI binary.
package main

import (
	"os"

	"queryd/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}

// Package main is the entry point for the lakefence CLI binary.
package main

import (
	"os"

	"lakefence/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}

// Package main is the entry point for the beanexport CLI.
package main

import (
	"os"

	"beanexport/cmd/beanexport/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}

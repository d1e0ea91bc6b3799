// Package main is the entry point for hpsdrdump.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/hpsdrdump/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

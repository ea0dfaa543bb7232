package main

import (
	"fmt"
	"os"

	"github.com/jls5177/mctp-emu/cmd/mctp-emu/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

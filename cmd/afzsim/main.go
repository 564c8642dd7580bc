// Command afzsim runs the antifreeze reference host simulation.
package main

import (
	"fmt"
	"os"

	"github.com/talgya/antifreeze/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "afzsim:", err)
		os.Exit(1)
	}
}

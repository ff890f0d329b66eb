package main

import (
	"fmt"
	"os"

	"booktop/cmd/booktop/cmd"
)

func main() {
	if err := cmd.Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

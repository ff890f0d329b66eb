// Package cmd holds the booktop command line.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	Root = &cobra.Command{
		Use:           "booktop",
		Short:         "booktop computes the K most-read books per country from read events",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"capcall/internal/buildinfo"
)

func newVersionCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		RunE: func(_ *cobra.Command, _ []string) error {
			if opts.jsonOutput {
				return writeJSON(buildinfo.Info())
			}
			fmt.Println(buildinfo.String())
			return nil
		},
	}
}

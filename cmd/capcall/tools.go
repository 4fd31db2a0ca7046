package main

import (
	"context"

	"github.com/spf13/cobra"
)

func newToolsCmd(opts *cliOptions) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the capability catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			c, err := opts.newClient(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close(context.Background()) }()

			snap, err := c.Tools(ctx, refresh)
			if err != nil {
				return err
			}
			return printCatalog(snap, opts.jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the in-memory and on-disk catalog copies")

	return cmd
}

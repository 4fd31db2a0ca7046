package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newResolveCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <capability>",
		Short: "Print the fully qualified name a capability id resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			c, err := opts.newClient(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close(context.Background()) }()

			name, err := c.Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(map[string]any{"id": args[0], "name": name})
			}
			fmt.Println(name)
			return nil
		},
	}
}

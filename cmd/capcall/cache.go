package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the on-disk catalog cache",
	}
	cmd.AddCommand(newCacheInfoCmd(opts), newCacheClearCmd(opts))
	return cmd
}

func newCacheInfoCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the cache entry for the current configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.newClient(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close(context.Background()) }()

			return printCacheInfo(c.CacheInfo(), opts.jsonOutput)
		},
	}
}

func newCacheClearCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the cache entry for the current configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.newClient(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close(context.Background()) }()

			if err := c.ClearCache(); err != nil {
				return err
			}
			if !opts.jsonOutput {
				fmt.Println("cache cleared")
				return nil
			}
			return writeJSON(map[string]any{"cleared": true, "fingerprint": c.Fingerprint()})
		},
	}
}

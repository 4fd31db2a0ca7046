package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"capcall/internal/client"
	"capcall/internal/config"
)

type cliOptions struct {
	configPath string
	jsonOutput bool
	verbose    bool
	logger     *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := cliOptions{
		logger: zap.NewNop(),
	}

	root := &cobra.Command{
		Use:           "capcall",
		Short:         "Discover and invoke remote capabilities",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.verbose {
				logger, err := zap.NewDevelopment()
				if err != nil {
					return fmt.Errorf("build logger: %w", err)
				}
				opts.logger = logger
				// Flag names only; argument values may carry secrets.
				opts.logger.Debug("flags set", zap.Strings("flags", changedFlagNames(cmd)))
			}
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (default: capcall.yaml, then ~/.config/capcall/config.yaml)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output JSON")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")

	root.AddCommand(
		newToolsCmd(&opts),
		newCallCmd(&opts),
		newResolveCmd(&opts),
		newCacheCmd(&opts),
		newValidateCmd(&opts),
		newVersionCmd(&opts),
	)

	return root
}

func (o *cliOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := config.FindConfig(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	return config.NewLoader(o.logger).Load(cmd.Context(), path)
}

func (o *cliOptions) newClient(cmd *cobra.Command) (*client.Client, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newConfiguredClient(cfg, o)
}

func newConfiguredClient(cfg config.Config, opts *cliOptions) (*client.Client, error) {
	return client.New(cfg, client.Options{Logger: opts.logger})
}

func changedFlagNames(cmd *cobra.Command) []string {
	var names []string
	cmd.Flags().Visit(func(f *pflag.Flag) {
		names = append(names, f.Name)
	})
	return names
}

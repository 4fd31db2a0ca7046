package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newCallCmd(opts *cliOptions) *cobra.Command {
	var (
		argsJSON  string
		argsFile  string
		timeoutMs int
	)

	cmd := &cobra.Command{
		Use:   "call <capability>",
		Short: "Invoke a capability by exact or suffix name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			callArgs, err := parseCallArgs(argsJSON, argsFile)
			if err != nil {
				return err
			}

			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if timeoutMs > 0 {
				cfg.CallTimeout = time.Duration(timeoutMs) * time.Millisecond
			}

			c, err := newConfiguredClient(cfg, opts)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close(context.Background()) }()

			result, err := c.Call(ctx, args[0], callArgs)
			if err != nil {
				return err
			}
			return printResult(result, opts.jsonOutput)
		},
	}

	cmd.Flags().StringVar(&argsJSON, "args", "", "capability arguments as a JSON object")
	cmd.Flags().StringVar(&argsFile, "args-file", "", "read capability arguments from a JSON file (- for stdin)")
	cmd.Flags().IntVar(&timeoutMs, "timeout", 0, "override the call timeout in milliseconds")

	return cmd
}

func parseCallArgs(argsJSON, argsFile string) (map[string]any, error) {
	if argsJSON != "" && argsFile != "" {
		return nil, fmt.Errorf("--args and --args-file are mutually exclusive")
	}

	raw := []byte(argsJSON)
	if argsFile != "" {
		var err error
		if argsFile == "-" {
			raw, err = readAllStdin()
		} else {
			raw, err = os.ReadFile(argsFile)
		}
		if err != nil {
			return nil, fmt.Errorf("read args: %w", err)
		}
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}

	var parsed map[string]any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("args must be a JSON object: %w", err)
	}
	return parsed, nil
}

func readAllStdin() ([]byte, error) {
	return io.ReadAll(os.Stdin)
}

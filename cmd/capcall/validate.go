package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"capcall/internal/config"
	"capcall/internal/domain"
)

func newValidateCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and print the normalized form",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			return printConfigSummary(summarizeConfig(cfg), opts.jsonOutput)
		},
	}
}

// configSummary is the printable view of a validated configuration. The
// credential never appears in it, only whether one is set.
type configSummary struct {
	Mode          string            `json:"mode"`
	BaseEndpoint  string            `json:"baseEndpoint,omitempty"`
	VisionEnabled bool              `json:"visionEnabled"`
	CredentialSet bool              `json:"credentialSet"`
	CallTimeoutMs int64             `json:"callTimeoutMs"`
	Retry         retrySummary      `json:"retry"`
	Cache         cacheSummary      `json:"cache"`
	Endpoints     []endpointSummary `json:"endpoints"`
	Fingerprint   string            `json:"fingerprint,omitempty"`
}

type retrySummary struct {
	BaseDelayMs      int64          `json:"baseDelayMs"`
	MaxDelayMs       int64          `json:"maxDelayMs"`
	JitterMaxMs      int64          `json:"jitterMaxMs"`
	MaxRetries       int            `json:"maxRetries"`
	NamespaceRetries map[string]int `json:"namespaceRetries,omitempty"`
}

type cacheSummary struct {
	Enabled bool   `json:"enabled"`
	TTLMs   int64  `json:"ttlMs"`
	Dir     string `json:"dir,omitempty"`
}

type endpointSummary struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Target string `json:"target"`
}

func summarizeConfig(cfg config.Config) configSummary {
	endpoints := make([]endpointSummary, 0, len(cfg.Endpoints))
	for _, ep := range cfg.Endpoints {
		endpoints = append(endpoints, summarizeEndpoint(ep))
	}

	summary := configSummary{
		Mode:          cfg.Mode,
		BaseEndpoint:  cfg.BaseEndpoint,
		VisionEnabled: cfg.VisionEnabled,
		CredentialSet: cfg.Credential != "",
		CallTimeoutMs: cfg.CallTimeout.Milliseconds(),
		Retry: retrySummary{
			BaseDelayMs:      cfg.Retry.BaseDelay.Milliseconds(),
			MaxDelayMs:       cfg.Retry.MaxDelay.Milliseconds(),
			JitterMaxMs:      cfg.Retry.JitterMax.Milliseconds(),
			MaxRetries:       cfg.Retry.MaxRetries,
			NamespaceRetries: cfg.Retry.NamespaceRetries,
		},
		Cache: cacheSummary{
			Enabled: cfg.Cache.Enabled,
			TTLMs:   cfg.Cache.TTL.Milliseconds(),
			Dir:     cfg.Cache.Dir,
		},
		Endpoints: endpoints,
	}
	if fp, err := cfg.Fingerprint(); err == nil {
		summary.Fingerprint = fp
	}
	return summary
}

func summarizeEndpoint(ep domain.EndpointSpec) endpointSummary {
	if ep.IsCommand() {
		return endpointSummary{Name: ep.Name, Kind: "command", Target: ep.Command[0]}
	}
	return endpointSummary{Name: ep.Name, Kind: "url", Target: ep.URL}
}

func printConfigSummary(summary configSummary, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(summary)
	}
	fmt.Printf("mode=%s endpoints=%d fingerprint=%s\n", summary.Mode, len(summary.Endpoints), summary.Fingerprint)
	for _, ep := range summary.Endpoints {
		fmt.Printf("%s (%s) %s\n", ep.Name, ep.Kind, ep.Target)
	}
	return nil
}

package main

import (
	"encoding/json"
	"fmt"
	"time"

	"capcall/internal/domain"
	"capcall/internal/infra/catalogcache"
)

func writeJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printCatalog(snap domain.CatalogSnapshot, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(map[string]any{
			"etag":         snap.ETag,
			"source":       snap.Source,
			"capturedAt":   snap.CapturedAt.Format(time.RFC3339),
			"capabilities": snap.Capabilities,
		})
	}
	fmt.Printf("etag=%s source=%s capabilities=%d\n", snap.ETag, snap.Source, len(snap.Capabilities))
	for _, d := range snap.Capabilities {
		fmt.Println(d.Name)
	}
	return nil
}

func printResult(result any, jsonOutput bool) error {
	if text, ok := result.(string); ok && !jsonOutput {
		fmt.Println(text)
		return nil
	}
	return writeJSON(result)
}

func printCacheInfo(info catalogcache.Info, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(info)
	}
	fmt.Printf("path=%s\n", info.Path)
	fmt.Printf("fingerprint=%s enabled=%t ttlMs=%d\n", info.Fingerprint, info.Enabled, info.TTLMs)
	if !info.Exists {
		fmt.Println("entry: absent")
		return nil
	}
	fmt.Printf("entry: formatVersion=%d capabilities=%d ageMs=%d expired=%t\n",
		info.FormatVersion, info.Capabilities, info.AgeMs, info.Expired)
	return nil
}

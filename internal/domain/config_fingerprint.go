package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// fingerprintLength is the hex-truncated size of the cache partition key.
const fingerprintLength = 16

type configFingerprintInput struct {
	Mode          string          `json:"mode"`
	BaseEndpoint  string          `json:"baseEndpoint"`
	Endpoints     []endpointEntry `json:"endpoints"`
	VisionEnabled bool            `json:"visionEnabled"`
}

type endpointEntry struct {
	Name    string       `json:"name"`
	Command []string     `json:"command"`
	URL     string       `json:"url"`
	Headers []headerPair `json:"headers"`
	Env     []headerPair `json:"env"`
}

type headerPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ConfigFingerprint derives the cache partition key for one client
// configuration. Endpoint order is part of the identity because it fixes
// the discovery order of the catalog.
func ConfigFingerprint(mode, baseEndpoint string, endpoints []EndpointSpec, visionEnabled bool) (string, error) {
	entries := make([]endpointEntry, 0, len(endpoints))
	for _, ep := range endpoints {
		entries = append(entries, endpointEntry{
			Name:    ep.Name,
			Command: append([]string{}, ep.Command...),
			URL:     ep.URL,
			Headers: sortedPairs(ep.Headers),
			Env:     sortedPairs(ep.Env),
		})
	}

	input := configFingerprintInput{
		Mode:          mode,
		BaseEndpoint:  baseEndpoint,
		Endpoints:     entries,
		VisionEnabled: visionEnabled,
	}

	raw, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("marshal config fingerprint: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:fingerprintLength], nil
}

func sortedPairs(values map[string]string) []headerPair {
	out := make([]headerPair, 0, len(values))
	for key := range values {
		out = append(out, headerPair{Key: key, Value: values[key]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

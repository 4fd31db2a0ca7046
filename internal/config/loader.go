package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"capcall/internal/domain"
)

// DefaultSearchPaths returns the config file search order. An explicit
// path (from the -config flag) is checked first by FindConfig; then
// ./capcall.yaml, then ~/.config/capcall/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"capcall.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "capcall", "config.yaml"))
	}
	return paths
}

// FindConfig locates a config file. If explicit is non-empty it must
// exist. Otherwise the search paths are tried in order and the first hit
// wins.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Default returns the built-in configuration: standard mode, no
// endpoints, stock retry and cache settings. Library callers start here
// and fill in endpoints.
func Default() Config {
	return Config{
		Mode: domain.DefaultOperatingMode,
		Retry: domain.RetryPolicy{
			BaseDelay:  domain.DefaultRetryBaseDelayMs * time.Millisecond,
			MaxDelay:   domain.DefaultRetryMaxDelayMs * time.Millisecond,
			JitterMax:  domain.DefaultRetryJitterMaxMs * time.Millisecond,
			MaxRetries: domain.DefaultMaxRetries,
		},
		Cache: CacheConfig{
			Enabled: domain.DefaultCacheEnabled,
			TTL:     domain.DefaultCacheTTLMs * time.Millisecond,
		},
		CallTimeout: domain.DefaultCallTimeoutMs * time.Millisecond,
	}
}

type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		return &Loader{logger: zap.NewNop()}
	}
	return &Loader{logger: logger.Named("config")}
}

func newConfigViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	bindEnvOverrides(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", domain.DefaultOperatingMode)
	v.SetDefault("callTimeoutMs", domain.DefaultCallTimeoutMs)
	v.SetDefault("retry.baseDelayMs", domain.DefaultRetryBaseDelayMs)
	v.SetDefault("retry.maxDelayMs", domain.DefaultRetryMaxDelayMs)
	v.SetDefault("retry.jitterMaxMs", domain.DefaultRetryJitterMaxMs)
	v.SetDefault("retry.maxRetries", domain.DefaultMaxRetries)
	v.SetDefault("cache.enabled", domain.DefaultCacheEnabled)
	v.SetDefault("cache.ttlMs", domain.DefaultCacheTTLMs)
}

// bindEnvOverrides maps CAPCALL_* environment variables onto the scalar
// settings. Environment values take precedence over the file, so the
// credential and per-machine knobs never have to live in it. Endpoint
// and namespace sections stay file-only; their keys are identifiers.
func bindEnvOverrides(v *viper.Viper) {
	bindings := [][2]string{
		{"mode", "CAPCALL_MODE"},
		{"baseEndpoint", "CAPCALL_BASE_ENDPOINT"},
		{"visionEnabled", "CAPCALL_VISION_ENABLED"},
		{"credential", "CAPCALL_CREDENTIAL"},
		{"callTimeoutMs", "CAPCALL_CALL_TIMEOUT_MS"},
		{"retry.baseDelayMs", "CAPCALL_RETRY_BASE_DELAY_MS"},
		{"retry.maxDelayMs", "CAPCALL_RETRY_MAX_DELAY_MS"},
		{"retry.jitterMaxMs", "CAPCALL_RETRY_JITTER_MAX_MS"},
		{"retry.maxRetries", "CAPCALL_RETRY_MAX_RETRIES"},
		{"cache.enabled", "CAPCALL_CACHE_ENABLED"},
		{"cache.ttlMs", "CAPCALL_CACHE_TTL_MS"},
		{"cache.dir", "CAPCALL_CACHE_DIR"},
	}
	for _, b := range bindings {
		_ = v.BindEnv(b[0], b[1])
	}
}

// rawConfig holds the defaulted settings tree decoded through viper.
type rawConfig struct {
	Mode          string         `mapstructure:"mode"`
	BaseEndpoint  string         `mapstructure:"baseEndpoint"`
	VisionEnabled bool           `mapstructure:"visionEnabled"`
	Credential    string         `mapstructure:"credential"`
	CallTimeoutMs int            `mapstructure:"callTimeoutMs"`
	Retry         rawRetryConfig `mapstructure:"retry"`
	Cache         rawCacheConfig `mapstructure:"cache"`
}

type rawRetryConfig struct {
	BaseDelayMs int `mapstructure:"baseDelayMs"`
	MaxDelayMs  int `mapstructure:"maxDelayMs"`
	JitterMaxMs int `mapstructure:"jitterMaxMs"`
	MaxRetries  int `mapstructure:"maxRetries"`
}

type rawCacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	TTLMs   int    `mapstructure:"ttlMs"`
	Dir     string `mapstructure:"dir"`
}

// rawTopology holds the sections whose map keys are identifiers. Viper
// folds keys to lower case and treats dots as path separators, which
// would mangle env names and namespace budgets, so these decode straight
// from the YAML.
type rawTopology struct {
	Endpoints []rawEndpointSpec `yaml:"endpoints"`
	Retry     rawRetryBudgets   `yaml:"retry"`
}

type rawRetryBudgets struct {
	NamespaceRetries map[string]int `yaml:"namespaceRetries"`
}

type rawEndpointSpec struct {
	Name    string            `yaml:"name"`
	Command []string          `yaml:"command"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	Env     map[string]string `yaml:"env"`
}

// Load reads, expands, and validates the config file at path.
func (l *Loader) Load(ctx context.Context, path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	expanded, unset, err := expandEnv(data)
	if err != nil {
		return Config{}, err
	}
	if len(unset) > 0 {
		l.logger.Warn("missing environment variables in config",
			zap.String("path", path),
			zap.Strings("missing", unset),
		)
	}

	v := newConfigViper()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	var topo rawTopology
	if err := yaml.Unmarshal([]byte(expanded), &topo); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return Config{}, err
	}

	cfg, errs := normalizeConfig(raw, topo)
	if len(errs) > 0 {
		return Config{}, errors.New(strings.Join(errs, "; "))
	}
	return cfg, nil
}

func normalizeConfig(raw rawConfig, topo rawTopology) (Config, []string) {
	var errs []string

	mode := strings.ToLower(strings.TrimSpace(raw.Mode))
	if mode == "" {
		mode = domain.DefaultOperatingMode
	}

	baseEndpoint := strings.TrimSpace(raw.BaseEndpoint)
	if baseEndpoint != "" && !isHTTPURL(baseEndpoint) {
		errs = append(errs, "baseEndpoint must be a valid http(s) URL")
	}

	if raw.CallTimeoutMs <= 0 {
		errs = append(errs, "callTimeoutMs must be > 0")
	}

	retry, retryErrs := normalizeRetry(raw.Retry, topo.Retry.NamespaceRetries)
	errs = append(errs, retryErrs...)

	endpoints := make([]domain.EndpointSpec, 0, len(topo.Endpoints))
	seen := make(map[string]struct{})
	for i, ep := range topo.Endpoints {
		normalized, epErrs := normalizeEndpoint(ep, i)
		if _, dup := seen[normalized.Name]; dup {
			errs = append(errs, fmt.Sprintf("endpoints[%d]: duplicate name %q", i, normalized.Name))
		} else if normalized.Name != "" {
			seen[normalized.Name] = struct{}{}
		}
		if len(epErrs) > 0 {
			errs = append(errs, epErrs...)
			continue
		}
		endpoints = append(endpoints, normalized)
	}

	cfg := Config{
		Mode:          mode,
		BaseEndpoint:  baseEndpoint,
		VisionEnabled: raw.VisionEnabled,
		Credential:    raw.Credential,
		Endpoints:     endpoints,
		Retry:         retry,
		Cache: CacheConfig{
			Enabled: raw.Cache.Enabled,
			TTL:     time.Duration(raw.Cache.TTLMs) * time.Millisecond,
			Dir:     strings.TrimSpace(raw.Cache.Dir),
		},
		CallTimeout: time.Duration(raw.CallTimeoutMs) * time.Millisecond,
	}
	return cfg, errs
}

func normalizeRetry(raw rawRetryConfig, budgets map[string]int) (domain.RetryPolicy, []string) {
	var errs []string

	if raw.BaseDelayMs <= 0 {
		errs = append(errs, "retry.baseDelayMs must be > 0")
	}
	if raw.MaxDelayMs < raw.BaseDelayMs {
		errs = append(errs, "retry.maxDelayMs must be >= retry.baseDelayMs")
	}
	if raw.JitterMaxMs < 0 {
		errs = append(errs, "retry.jitterMaxMs must be >= 0")
	}
	if raw.MaxRetries < 0 {
		errs = append(errs, "retry.maxRetries must be >= 0")
	}

	var namespaces map[string]int
	if len(budgets) > 0 {
		namespaces = make(map[string]int, len(budgets))
		for name, retries := range budgets {
			trimmed := strings.TrimSpace(name)
			if trimmed == "" {
				errs = append(errs, "retry.namespaceRetries contains an empty namespace")
				continue
			}
			if retries < 0 {
				errs = append(errs, fmt.Sprintf("retry.namespaceRetries.%s must be >= 0", trimmed))
			}
			namespaces[trimmed] = retries
		}
	}

	return domain.RetryPolicy{
		BaseDelay:        time.Duration(raw.BaseDelayMs) * time.Millisecond,
		MaxDelay:         time.Duration(raw.MaxDelayMs) * time.Millisecond,
		JitterMax:        time.Duration(raw.JitterMaxMs) * time.Millisecond,
		MaxRetries:       raw.MaxRetries,
		NamespaceRetries: namespaces,
	}, errs
}

func normalizeEndpoint(raw rawEndpointSpec, index int) (domain.EndpointSpec, []string) {
	var errs []string

	name := strings.TrimSpace(raw.Name)
	if name == "" {
		errs = append(errs, fmt.Sprintf("endpoints[%d]: name is required", index))
	} else if strings.Contains(name, ".") {
		// The dot separates the endpoint name from the tool name in a
		// qualified capability name.
		errs = append(errs, fmt.Sprintf("endpoints[%d]: name must not contain '.'", index))
	}

	endpointURL := strings.TrimSpace(raw.URL)
	hasCommand := len(raw.Command) > 0

	switch {
	case hasCommand && endpointURL != "":
		errs = append(errs, fmt.Sprintf("endpoints[%d]: command and url are mutually exclusive", index))
	case !hasCommand && endpointURL == "":
		errs = append(errs, fmt.Sprintf("endpoints[%d]: command or url is required", index))
	case hasCommand:
		if strings.TrimSpace(raw.Command[0]) == "" {
			errs = append(errs, fmt.Sprintf("endpoints[%d]: command[0] must not be empty", index))
		}
		if len(raw.Headers) > 0 {
			errs = append(errs, fmt.Sprintf("endpoints[%d]: headers apply to url endpoints only", index))
		}
	default:
		if !isHTTPURL(endpointURL) {
			errs = append(errs, fmt.Sprintf("endpoints[%d]: url must be a valid http(s) URL", index))
		}
		if len(raw.Env) > 0 {
			errs = append(errs, fmt.Sprintf("endpoints[%d]: env applies to command endpoints only", index))
		}
		errs = append(errs, validateHeaders(raw.Headers, index)...)
	}

	spec := domain.EndpointSpec{
		Name:    name,
		Command: append([]string(nil), raw.Command...),
		URL:     endpointURL,
		Headers: canonicalHeaders(raw.Headers),
		Env:     cloneStringMap(raw.Env),
	}
	return spec, errs
}

func validateHeaders(headers map[string]string, index int) []string {
	var errs []string
	for key, value := range headers {
		name := strings.TrimSpace(key)
		if name == "" {
			errs = append(errs, fmt.Sprintf("endpoints[%d]: headers contains an empty header name", index))
			continue
		}
		if isReservedHeader(name) {
			errs = append(errs, fmt.Sprintf("endpoints[%d]: headers.%s is reserved and managed by the transport", index, name))
		}
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Sprintf("endpoints[%d]: headers.%s must not be empty", index, name))
		}
	}
	return errs
}

func isReservedHeader(header string) bool {
	switch strings.ToLower(strings.TrimSpace(header)) {
	case "content-type", "accept", "mcp-protocol-version", "mcp-session-id", "last-event-id",
		"host", "content-length", "transfer-encoding", "connection":
		return true
	default:
		return false
	}
}

// canonicalHeaders trims and canonicalizes header names so lookups and
// the config fingerprint are stable regardless of the spelling in the
// file. Keys are visited in sorted order to make collisions
// deterministic.
func canonicalHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}

	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	normalized := make(map[string]string, len(headers))
	for _, key := range keys {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" {
			continue
		}
		normalized[http.CanonicalHeaderKey(trimmed)] = strings.TrimSpace(headers[key])
	}
	if len(normalized) == 0 {
		return nil
	}
	return normalized
}

func cloneStringMap(values map[string]string) map[string]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]string, len(values))
	for key, value := range values {
		out[key] = value
	}
	return out
}

func isHTTPURL(raw string) bool {
	if strings.Contains(raw, " ") {
		return false
	}
	parsed, err := url.ParseRequestURI(raw)
	return err == nil && parsed.Host != "" && (parsed.Scheme == "http" || parsed.Scheme == "https")
}

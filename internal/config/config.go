package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	// HubURL is the base URL of the datasets-server rows API.
	HubURL string `json:"hub_url,omitempty"`

	// HubToken is sent as a bearer token. Empty falls back to $HF_TOKEN.
	HubToken string `json:"hub_token,omitempty"`

	// OriginalDataset and OriginalConfig name the unperturbed collection.
	OriginalDataset string `json:"original_dataset,omitempty"`
	OriginalConfig  string `json:"original_config,omitempty"`

	// AdversarialDataset names the perturbed collection; its config is the
	// variant chosen on the command line (AddSent, AddOneSent).
	AdversarialDataset string `json:"adversarial_dataset,omitempty"`

	// Split is shared by both collections.
	Split string `json:"split,omitempty"`

	// PageSize is the number of rows requested per page (the server caps it at 100).
	PageSize int `json:"page_size,omitempty"`

	// FetchConcurrency bounds the number of pages fetched in parallel.
	FetchConcurrency int `json:"fetch_concurrency,omitempty"`

	// TimeoutSeconds is the per-request HTTP timeout.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`

	// SnippetLen is the number of trailing context characters shown per sample.
	SnippetLen int `json:"snippet_len,omitempty"`

	// ProxyURL overrides HTTP(S)_PROXY from the environment.
	ProxyURL string `json:"proxy_url,omitempty"`

	// InsecureSkipVerify disables TLS certificate verification for the hub client only.
	// Use with caution: responses can then be tampered with in transit.
	InsecureSkipVerify bool `json:"insecure_skip_verify,omitempty"`

	// CacheTTLHours expires cached collections. 0 means cached collections never expire.
	CacheTTLHours int `json:"cache_ttl_hours,omitempty"`

	// DisableCache skips the local SQLite dataset cache entirely.
	DisableCache bool `json:"disable_cache,omitempty"`

	// AllowedPaths lists additional directories that MCP and web callers may
	// read record files from. Only absolute paths are honored.
	// Default: only ~/.advdiff/datasets is allowed.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths lets MCP and web callers read record files from any directory.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of type names to disable entirely.
	// Known types: "diff", "cache". Unknown type names are logged as warnings.
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		HubURL:             "https://datasets-server.huggingface.co",
		OriginalDataset:    "rajpurkar/squad",
		OriginalConfig:     "plain_text",
		AdversarialDataset: "stanfordnlp/squad_adversarial",
		Split:              "validation",
		PageSize:           100,
		FetchConcurrency:   4,
		TimeoutSeconds:     60,
		SnippetLen:         400,
	}
}

// Timeout returns the HTTP timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheTTL returns the cache expiry as a duration (0 = never).
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// Token returns the configured hub token, falling back to $HF_TOKEN.
func (c *Config) Token() string {
	if c.HubToken != "" {
		return c.HubToken
	}
	return os.Getenv("HF_TOKEN")
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.advdiff.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.advdiff) and repo (.advdiff) directories.
// Repo config is found by walking upward from startDir to find the nearest .advdiff/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .advdiff/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".advdiff", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.HubURL = mergeString(base.HubURL, overlay.HubURL)
	result.HubToken = mergeString(base.HubToken, overlay.HubToken)
	result.OriginalDataset = mergeString(base.OriginalDataset, overlay.OriginalDataset)
	result.OriginalConfig = mergeString(base.OriginalConfig, overlay.OriginalConfig)
	result.AdversarialDataset = mergeString(base.AdversarialDataset, overlay.AdversarialDataset)
	result.Split = mergeString(base.Split, overlay.Split)
	result.ProxyURL = mergeString(base.ProxyURL, overlay.ProxyURL)

	result.PageSize = mergeInt(base.PageSize, overlay.PageSize)
	result.FetchConcurrency = mergeInt(base.FetchConcurrency, overlay.FetchConcurrency)
	result.TimeoutSeconds = mergeInt(base.TimeoutSeconds, overlay.TimeoutSeconds)
	result.SnippetLen = mergeInt(base.SnippetLen, overlay.SnippetLen)
	result.CacheTTLHours = mergeInt(base.CacheTTLHours, overlay.CacheTTLHours)

	// Booleans: overlay wins if true, else base
	result.InsecureSkipVerify = base.InsecureSkipVerify || overlay.InsecureSkipVerify
	result.DisableCache = base.DisableCache || overlay.DisableCache
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func mergeString(base, overlay string) string {
	if overlay = strings.TrimSpace(overlay); overlay != "" {
		return overlay
	}
	return base
}

func mergeInt(base, overlay int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

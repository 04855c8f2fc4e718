// Package config loads amanscout configuration from defaults, YAML files and environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete amanscout configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Ranker    RankerConfig    `yaml:"ranker" json:"ranker"`
	Scrape    ScrapeConfig    `yaml:"scrape" json:"scrape"`
	Optimizer OptimizerConfig `yaml:"optimizer" json:"optimizer"`
	Pipeline  PipelineConfig  `yaml:"pipeline" json:"pipeline"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	History   HistoryConfig   `yaml:"history" json:"history"`
}

// SearchConfig configures the search fan-out.
type SearchConfig struct {
	// Provider selects the search backend: "duckduckgo" (default).
	Provider string `yaml:"provider" json:"provider"`
	// Endpoint overrides the provider URL, mainly for tests and self-hosted mirrors.
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// Multiplier is how many candidates to request per required result.
	Multiplier int `yaml:"multiplier" json:"multiplier"`
	// Ladder is walked when the first pass yields too few candidates.
	Ladder []int `yaml:"ladder" json:"ladder"`
	// Attempts is the total number of provider calls before giving up.
	Attempts int `yaml:"attempts" json:"attempts"`
	// RetryDelay is the fixed wait between attempts (e.g. "1s").
	RetryDelay string `yaml:"retry_delay" json:"retry_delay"`
	// Timeout bounds one provider call.
	Timeout string `yaml:"timeout" json:"timeout"`
}

// RankerConfig configures the language model used for ranking and query enhancement.
type RankerConfig struct {
	// Provider is "ollama", "genai" or "none" (heuristic only).
	Provider string `yaml:"provider" json:"provider"`
	Model    string `yaml:"model" json:"model"`
	// Host is the Ollama endpoint.
	Host string `yaml:"host" json:"host"`
	// APIKeyEnv names the environment variable holding the Gemini API key.
	APIKeyEnv   string  `yaml:"api_key_env" json:"api_key_env"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	Timeout     string  `yaml:"timeout" json:"timeout"`
	// MaxURLs caps how many candidates are sent to the model.
	MaxURLs int `yaml:"max_urls" json:"max_urls"`
	// MaxFailures opens the circuit breaker after this many consecutive failures.
	MaxFailures int `yaml:"max_failures" json:"max_failures"`
}

// ScrapeConfig configures the extraction strategies and the racing executor.
type ScrapeConfig struct {
	// StrategyTimeout is the hard per-strategy deadline for one URL.
	StrategyTimeout string `yaml:"strategy_timeout" json:"strategy_timeout"`
	// MaxBatch caps the number of URLs raced at once.
	MaxBatch int `yaml:"max_batch" json:"max_batch"`
	// HTTPTimeout bounds the static fetcher's request.
	HTTPTimeout string   `yaml:"http_timeout" json:"http_timeout"`
	UserAgents  []string `yaml:"user_agents" json:"user_agents"`
	// BrowserBin is an explicit Chromium path; empty lets rod find or download one.
	BrowserBin string `yaml:"browser_bin" json:"browser_bin"`
	Headless   bool   `yaml:"headless" json:"headless"`
	// DisableDynamic removes the browser strategy, e.g. on hosts without Chromium.
	DisableDynamic bool `yaml:"disable_dynamic" json:"disable_dynamic"`
	// SpecializedRetries is the retry count of the specialized crawler.
	SpecializedRetries int `yaml:"specialized_retries" json:"specialized_retries"`
}

// OptimizerConfig configures chunk embedding and the ephemeral vector session.
type OptimizerConfig struct {
	// Embedder is "ollama", "genai" or "static".
	Embedder    string  `yaml:"embedder" json:"embedder"`
	Model       string  `yaml:"model" json:"model"`
	Host        string  `yaml:"host" json:"host"`
	EmbedBatch  int     `yaml:"embed_batch" json:"embed_batch"`
	UpsertBatch int     `yaml:"upsert_batch" json:"upsert_batch"`
	QueryLimit  int     `yaml:"query_limit" json:"query_limit"`
	MinScore    float64 `yaml:"min_score" json:"min_score"`
	MaxWorkers  int     `yaml:"max_workers" json:"max_workers"`
	// SyncCleanup deletes the session collection before Optimize returns.
	SyncCleanup bool `yaml:"sync_cleanup" json:"sync_cleanup"`
	// CacheSize is the embedding LRU size; 0 disables the cache.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
	// StaticMinScore replaces MinScore when the static embedder is in use.
	StaticMinScore float64 `yaml:"static_min_score" json:"static_min_score"`
}

// PipelineConfig holds request defaults.
type PipelineConfig struct {
	DefaultCount  int `yaml:"default_count" json:"default_count"`
	DefaultBudget int `yaml:"default_budget" json:"default_budget"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport   string `yaml:"transport" json:"transport"`
	LogLevel    string `yaml:"log_level" json:"log_level"`
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
}

// HistoryConfig configures the run history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// DefaultUserAgents are rotated across static fetches.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Search: SearchConfig{
			Provider:   "duckduckgo",
			Multiplier: 4,
			Ladder:     []int{4, 5, 10},
			Attempts:   3,
			RetryDelay: "1s",
			Timeout:    "30s",
		},
		Ranker: RankerConfig{
			Provider:    "ollama",
			Model:       "qwen3:4b",
			Host:        "http://localhost:11434",
			APIKeyEnv:   "GEMINI_API_KEY",
			Temperature: 0.3,
			Timeout:     "60s",
			MaxURLs:     100,
			MaxFailures: 3,
		},
		Scrape: ScrapeConfig{
			StrategyTimeout:    "15s",
			MaxBatch:           8,
			HTTPTimeout:        "8s",
			UserAgents:         append([]string(nil), DefaultUserAgents...),
			Headless:           true,
			SpecializedRetries: 2,
		},
		Optimizer: OptimizerConfig{
			Embedder:    "ollama",
			Model:       "nomic-embed-text",
			Host:        "http://localhost:11434",
			EmbedBatch:  16,
			UpsertBatch: 100,
			QueryLimit:  30,
			MinScore:    0.6,
			MaxWorkers:  defaultWorkers(),
			CacheSize:   4096,
		},
		Pipeline: PipelineConfig{
			DefaultCount:  5,
			DefaultBudget: 25000,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    DefaultHistoryPath(),
		},
	}
}

// defaultWorkers is min(NumCPU, 4).
func defaultWorkers() int {
	return min(runtime.NumCPU(), 4)
}

// DataDir returns ~/.amanscout, falling back to the temp directory.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".amanscout")
	}
	return filepath.Join(home, ".amanscout")
}

// DefaultHistoryPath returns the default run history database path.
func DefaultHistoryPath() string {
	return filepath.Join(DataDir(), "history.db")
}

// GetUserConfigPath returns the path to the user configuration file:
//   - $XDG_CONFIG_HOME/amanscout/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/amanscout/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "amanscout", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "amanscout", "config.yaml")
	}
	return filepath.Join(home, ".config", "amanscout", "config.yaml")
}

// Load loads configuration for the given directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/amanscout/config.yaml)
//  3. Project config (.amanscout.yaml in dir)
//  4. Environment variables (AMANSCOUT_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	userPath := GetUserConfigPath()
	if fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	for _, name := range []string{".amanscout.yaml", ".amanscout.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			if err := cfg.loadYAML(path); err != nil {
				return nil, err
			}
			break
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFile loads defaults, merges one explicit YAML file, applies env overrides and validates.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Booleans and floors cannot be told apart from "unset" after decoding, so read them from the raw tree.
	var raw map[string]any
	_ = yaml.Unmarshal(data, &raw)

	c.mergeWith(&parsed, raw)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config, raw map[string]any) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	setString(&c.Search.Provider, other.Search.Provider)
	setString(&c.Search.Endpoint, other.Search.Endpoint)
	setInt(&c.Search.Multiplier, other.Search.Multiplier)
	if len(other.Search.Ladder) > 0 {
		c.Search.Ladder = other.Search.Ladder
	}
	setInt(&c.Search.Attempts, other.Search.Attempts)
	setString(&c.Search.RetryDelay, other.Search.RetryDelay)
	setString(&c.Search.Timeout, other.Search.Timeout)

	setString(&c.Ranker.Provider, other.Ranker.Provider)
	setString(&c.Ranker.Model, other.Ranker.Model)
	setString(&c.Ranker.Host, other.Ranker.Host)
	setString(&c.Ranker.APIKeyEnv, other.Ranker.APIKeyEnv)
	if other.Ranker.Temperature != 0 {
		c.Ranker.Temperature = other.Ranker.Temperature
	}
	setString(&c.Ranker.Timeout, other.Ranker.Timeout)
	setInt(&c.Ranker.MaxURLs, other.Ranker.MaxURLs)
	setInt(&c.Ranker.MaxFailures, other.Ranker.MaxFailures)

	setString(&c.Scrape.StrategyTimeout, other.Scrape.StrategyTimeout)
	setInt(&c.Scrape.MaxBatch, other.Scrape.MaxBatch)
	setString(&c.Scrape.HTTPTimeout, other.Scrape.HTTPTimeout)
	if len(other.Scrape.UserAgents) > 0 {
		c.Scrape.UserAgents = other.Scrape.UserAgents
	}
	setString(&c.Scrape.BrowserBin, other.Scrape.BrowserBin)
	setBool(&c.Scrape.Headless, raw, "scrape", "headless", other.Scrape.Headless)
	setBool(&c.Scrape.DisableDynamic, raw, "scrape", "disable_dynamic", other.Scrape.DisableDynamic)
	setInt(&c.Scrape.SpecializedRetries, other.Scrape.SpecializedRetries)

	setString(&c.Optimizer.Embedder, other.Optimizer.Embedder)
	setString(&c.Optimizer.Model, other.Optimizer.Model)
	setString(&c.Optimizer.Host, other.Optimizer.Host)
	setInt(&c.Optimizer.EmbedBatch, other.Optimizer.EmbedBatch)
	setInt(&c.Optimizer.UpsertBatch, other.Optimizer.UpsertBatch)
	setInt(&c.Optimizer.QueryLimit, other.Optimizer.QueryLimit)
	setFloat(&c.Optimizer.MinScore, raw, "optimizer", "min_score", other.Optimizer.MinScore)
	setFloat(&c.Optimizer.StaticMinScore, raw, "optimizer", "static_min_score", other.Optimizer.StaticMinScore)
	setInt(&c.Optimizer.MaxWorkers, other.Optimizer.MaxWorkers)
	setBool(&c.Optimizer.SyncCleanup, raw, "optimizer", "sync_cleanup", other.Optimizer.SyncCleanup)
	setInt(&c.Optimizer.CacheSize, other.Optimizer.CacheSize)

	setInt(&c.Pipeline.DefaultCount, other.Pipeline.DefaultCount)
	setInt(&c.Pipeline.DefaultBudget, other.Pipeline.DefaultBudget)

	setString(&c.Server.Transport, other.Server.Transport)
	setString(&c.Server.LogLevel, other.Server.LogLevel)
	setString(&c.Server.MetricsAddr, other.Server.MetricsAddr)

	setBool(&c.History.Enabled, raw, "history", "enabled", other.History.Enabled)
	setString(&c.History.Path, other.History.Path)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setBool(dst *bool, raw map[string]any, section, key string, v bool) {
	if present(raw, section, key) {
		*dst = v
	}
}

// setFloat honors explicit zeros, which are valid similarity floors.
func setFloat(dst *float64, raw map[string]any, section, key string, v float64) {
	if present(raw, section, key) {
		*dst = v
	}
}

// present reports whether section.key was written in the YAML source.
func present(raw map[string]any, section, key string) bool {
	sec, ok := raw[section].(map[string]any)
	if !ok {
		return false
	}
	_, found := sec[key]
	return found
}

// applyEnvOverrides applies AMANSCOUT_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AMANSCOUT_SEARCH_ENDPOINT"); v != "" {
		c.Search.Endpoint = v
	}
	if v := os.Getenv("AMANSCOUT_MULTIPLIER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.Multiplier = n
		}
	}
	if v := os.Getenv("AMANSCOUT_RANKER"); v != "" {
		c.Ranker.Provider = v
	}
	if v := os.Getenv("AMANSCOUT_RANKER_MODEL"); v != "" {
		c.Ranker.Model = v
	}
	if v := os.Getenv("AMANSCOUT_OLLAMA_HOST"); v != "" {
		c.Ranker.Host = v
		c.Optimizer.Host = v
	}
	if v := os.Getenv("AMANSCOUT_EMBEDDER"); v != "" {
		c.Optimizer.Embedder = v
	}
	if v := os.Getenv("AMANSCOUT_EMBED_MODEL"); v != "" {
		c.Optimizer.Model = v
	}
	if v := os.Getenv("AMANSCOUT_BROWSER_BIN"); v != "" {
		c.Scrape.BrowserBin = v
	}
	if v := os.Getenv("AMANSCOUT_DISABLE_DYNAMIC"); v != "" {
		c.Scrape.DisableDynamic = parseBool(v)
	}
	if v := os.Getenv("AMANSCOUT_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("AMANSCOUT_METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
	if v := os.Getenv("AMANSCOUT_HISTORY"); v != "" {
		c.History.Enabled = parseBool(v)
	}
	if v := os.Getenv("AMANSCOUT_HISTORY_PATH"); v != "" {
		c.History.Path = v
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes"
}

// APIKey resolves the Gemini API key from the configured variable, then GOOGLE_API_KEY.
func (c *Config) APIKey() string {
	if c.Ranker.APIKeyEnv != "" {
		if v := os.Getenv(c.Ranker.APIKeyEnv); v != "" {
			return v
		}
	}
	return os.Getenv("GOOGLE_API_KEY")
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Search.Multiplier < 1 {
		return fmt.Errorf("search.multiplier must be at least 1, got %d", c.Search.Multiplier)
	}
	for _, m := range c.Search.Ladder {
		if m < 1 {
			return fmt.Errorf("search.ladder entries must be at least 1, got %d", m)
		}
	}
	if c.Search.Attempts < 1 {
		return fmt.Errorf("search.attempts must be at least 1, got %d", c.Search.Attempts)
	}

	switch strings.ToLower(c.Ranker.Provider) {
	case "ollama", "genai", "none":
	default:
		return fmt.Errorf("ranker.provider must be 'ollama', 'genai' or 'none', got %s", c.Ranker.Provider)
	}
	if c.Ranker.Temperature < 0 || c.Ranker.Temperature > 2 {
		return fmt.Errorf("ranker.temperature must be between 0 and 2, got %f", c.Ranker.Temperature)
	}

	switch strings.ToLower(c.Optimizer.Embedder) {
	case "ollama", "genai", "static":
	default:
		return fmt.Errorf("optimizer.embedder must be 'ollama', 'genai' or 'static', got %s", c.Optimizer.Embedder)
	}
	if c.Optimizer.MinScore < 0 || c.Optimizer.MinScore > 1 {
		return fmt.Errorf("optimizer.min_score must be between 0 and 1, got %f", c.Optimizer.MinScore)
	}
	if c.Optimizer.StaticMinScore < 0 || c.Optimizer.StaticMinScore > 1 {
		return fmt.Errorf("optimizer.static_min_score must be between 0 and 1, got %f", c.Optimizer.StaticMinScore)
	}
	if c.Optimizer.EmbedBatch < 1 || c.Optimizer.UpsertBatch < 1 || c.Optimizer.QueryLimit < 1 {
		return fmt.Errorf("optimizer batch sizes and query_limit must be positive")
	}

	if c.Scrape.MaxBatch < 1 {
		return fmt.Errorf("scrape.max_batch must be at least 1, got %d", c.Scrape.MaxBatch)
	}

	durations := map[string]string{
		"search.retry_delay":      c.Search.RetryDelay,
		"search.timeout":          c.Search.Timeout,
		"ranker.timeout":          c.Ranker.Timeout,
		"scrape.strategy_timeout": c.Scrape.StrategyTimeout,
		"scrape.http_timeout":     c.Scrape.HTTPTimeout,
	}
	for name, v := range durations {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s must be a duration like \"15s\", got %q", name, v)
		}
	}

	if c.Pipeline.DefaultCount < 1 {
		return fmt.Errorf("pipeline.default_count must be at least 1, got %d", c.Pipeline.DefaultCount)
	}
	if c.Pipeline.DefaultBudget < 100 {
		return fmt.Errorf("pipeline.default_budget must be at least 100, got %d", c.Pipeline.DefaultBudget)
	}

	if strings.ToLower(c.Server.Transport) != "stdio" {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// Duration parses a validated duration field, falling back to def.
func Duration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

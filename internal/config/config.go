package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joeynyc/Citadel-Local/internal/council"
	"github.com/joeynyc/Citadel-Local/internal/providers"
	"github.com/joeynyc/Citadel-Local/internal/repo"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = ".citadel-local.yaml"

// Config represents the citadel configuration.
type Config struct {
	Ignore       []string      `yaml:"ignore"`
	MaxFileMB    int           `yaml:"max_file_mb" validate:"min=1"`
	ContextLines int           `yaml:"context_lines" validate:"min=0"`
	RulesFile    string        `yaml:"rules_file,omitempty"`
	FailOn       string        `yaml:"fail_on" validate:"failon"`
	Formats      []string      `yaml:"formats" validate:"min=1,dive,oneof=json md sarif text"`
	Ollama       OllamaConfig  `yaml:"ollama"`
	Cache        CacheConfig   `yaml:"cache"`
	Privacy      PrivacyConfig `yaml:"privacy"`
	Log          LogConfig     `yaml:"log"`
}

// OllamaConfig controls the model council.
type OllamaConfig struct {
	Enabled      bool   `yaml:"enabled"`
	BaseURL      string `yaml:"base_url" validate:"required,url"`
	TriageModel  string `yaml:"triage_model" validate:"required"`
	DeepModel    string `yaml:"deep_model" validate:"required"`
	SkepticModel string `yaml:"skeptic_model" validate:"required"`
	TimeoutS     int    `yaml:"timeout_s" validate:"min=1"`
	MaxRetries   int    `yaml:"max_retries" validate:"min=0,max=10"`
	Concurrency  int    `yaml:"concurrency" validate:"min=1,max=64"`
	OnError      string `yaml:"on_error" validate:"onerror"`
	SkepticMatch string `yaml:"skeptic_match" validate:"matchpolicy"`
}

// CacheConfig controls response caching.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Dir        string `yaml:"dir,omitempty"`
	TTLSeconds int    `yaml:"ttl_seconds" validate:"min=0"`
}

// PrivacyConfig controls what leaves the process in council prompts.
type PrivacyConfig struct {
	RedactPrompts bool     `yaml:"redact_prompts"`
	RedactPaths   []string `yaml:"redact_paths,omitempty"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level      string `yaml:"level" validate:"loglevel"`
	Format     string `yaml:"format" validate:"logformat"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"min=0"`
	MaxBackups int    `yaml:"max_backups" validate:"min=0"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Ignore:       append([]string(nil), repo.DefaultIgnore...),
		MaxFileMB:    2,
		ContextLines: 40,
		FailOn:       "none",
		Formats:      []string{"json", "md"},
		Ollama: OllamaConfig{
			Enabled:      true,
			BaseURL:      providers.DefaultOllamaURL,
			TriageModel:  council.DefaultTriageModel,
			DeepModel:    council.DefaultDeepModel,
			SkepticModel: council.DefaultSkepticModel,
			TimeoutS:     90,
			MaxRetries:   0,
			Concurrency:  1,
			OnError:      string(council.FailAbort),
			SkepticMatch: string(council.MatchExact),
		},
		Cache: CacheConfig{
			Enabled:    false,
			TTLSeconds: 86400,
		},
		Privacy: PrivacyConfig{
			RedactPrompts: false,
			RedactPaths:   []string{"**/.env", "**/*secrets*"},
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Timeout returns the per-call model timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Ollama.TimeoutS) * time.Second
}

// MaxBytes returns the per-file size cap in bytes.
func (c Config) MaxBytes() int64 {
	return repo.MaxBytes(c.MaxFileMB)
}

// LoadFile decodes the YAML file at path over the defaults. Keys absent from
// the file keep their default values. A missing file yields the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML to path.
func Save(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return buf.Bytes(), nil
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags and uses dotted keys; empty values
// are ignored. The result is validated.
func Load(path string, overrides map[string]string) (Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKeys maps environment variables to config keys. Later entries win.
var envKeys = []struct {
	env string
	key string
}{
	{"OLLAMA_HOST", "ollama.base_url"},
	{"CITADEL_OLLAMA_URL", "ollama.base_url"},
	{"CITADEL_TRIAGE_MODEL", "ollama.triage_model"},
	{"CITADEL_DEEP_MODEL", "ollama.deep_model"},
	{"CITADEL_SKEPTIC_MODEL", "ollama.skeptic_model"},
	{"CITADEL_TIMEOUT_S", "ollama.timeout_s"},
	{"CITADEL_MAX_RETRIES", "ollama.max_retries"},
	{"CITADEL_CONCURRENCY", "ollama.concurrency"},
	{"CITADEL_ON_ERROR", "ollama.on_error"},
	{"CITADEL_FAIL_ON", "fail_on"},
	{"CITADEL_CONTEXT_LINES", "context_lines"},
	{"CITADEL_LOG_LEVEL", "log.level"},
	{"CITADEL_LOG_FORMAT", "log.format"},
	{"CITADEL_REDACT_PROMPTS", "privacy.redact_prompts"},
}

func mergeEnv(cfg *Config) error {
	for _, e := range envKeys {
		v := os.Getenv(e.env)
		if v == "" {
			continue
		}
		if err := SetField(cfg, e.key, v); err != nil {
			return fmt.Errorf("%s: %w", e.env, err)
		}
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := overrides[k]
		if v == "" {
			continue
		}
		if err := SetField(cfg, k, v); err != nil {
			return err
		}
	}
	return nil
}

type setter func(cfg *Config, value string) error

var fields = map[string]setter{
	"ignore":        func(c *Config, v string) error { c.Ignore = splitList(v); return nil },
	"max_file_mb":   intField(func(c *Config) *int { return &c.MaxFileMB }),
	"context_lines": intField(func(c *Config) *int { return &c.ContextLines }),
	"rules_file":    func(c *Config, v string) error { c.RulesFile = v; return nil },
	"fail_on":       func(c *Config, v string) error { c.FailOn = strings.ToLower(v); return nil },
	"formats":       func(c *Config, v string) error { c.Formats = splitList(v); return nil },

	"ollama.enabled":       boolField(func(c *Config) *bool { return &c.Ollama.Enabled }),
	"ollama.base_url":      func(c *Config, v string) error { c.Ollama.BaseURL = withScheme(v); return nil },
	"ollama.triage_model":  func(c *Config, v string) error { c.Ollama.TriageModel = v; return nil },
	"ollama.deep_model":    func(c *Config, v string) error { c.Ollama.DeepModel = v; return nil },
	"ollama.skeptic_model": func(c *Config, v string) error { c.Ollama.SkepticModel = v; return nil },
	"ollama.timeout_s":     intField(func(c *Config) *int { return &c.Ollama.TimeoutS }),
	"ollama.max_retries":   intField(func(c *Config) *int { return &c.Ollama.MaxRetries }),
	"ollama.concurrency":   intField(func(c *Config) *int { return &c.Ollama.Concurrency }),
	"ollama.on_error":      func(c *Config, v string) error { c.Ollama.OnError = v; return nil },
	"ollama.skeptic_match": func(c *Config, v string) error { c.Ollama.SkepticMatch = v; return nil },

	"cache.enabled":     boolField(func(c *Config) *bool { return &c.Cache.Enabled }),
	"cache.dir":         func(c *Config, v string) error { c.Cache.Dir = v; return nil },
	"cache.ttl_seconds": intField(func(c *Config) *int { return &c.Cache.TTLSeconds }),

	"privacy.redact_prompts": boolField(func(c *Config) *bool { return &c.Privacy.RedactPrompts }),
	"privacy.redact_paths":   func(c *Config, v string) error { c.Privacy.RedactPaths = splitList(v); return nil },

	"log.level":       func(c *Config, v string) error { c.Log.Level = strings.ToLower(v); return nil },
	"log.format":      func(c *Config, v string) error { c.Log.Format = strings.ToLower(v); return nil },
	"log.file":        func(c *Config, v string) error { c.Log.File = v; return nil },
	"log.max_size_mb": intField(func(c *Config) *int { return &c.Log.MaxSizeMB }),
	"log.max_backups": intField(func(c *Config) *int { return &c.Log.MaxBackups }),
}

// SetField sets a single config field by dotted key. Returns error if key is
// unknown or the value does not parse.
func SetField(cfg *Config, key, value string) error {
	set, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	return set(cfg, value)
}

// Keys returns every key accepted by SetField, sorted.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func intField(get func(*Config) *int) setter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("must be an integer: %w", err)
		}
		*get(c) = n
		return nil
	}
}

func boolField(get func(*Config) *bool) setter {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("must be true or false: %w", err)
		}
		*get(c) = b
		return nil
	}
}

// splitList parses a comma-separated list, dropping empty items.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// withScheme accepts OLLAMA_HOST style values such as "127.0.0.1:11434".
func withScheme(v string) string {
	v = strings.TrimSpace(v)
	if v != "" && !strings.Contains(v, "://") {
		return "http://" + v
	}
	return v
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Package settings manages persistent user settings for the portctl CLI.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// History backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Defaults applied by the getters when a setting is unset.
const (
	DefaultProbeTimeout = 5 * time.Second
	DefaultApplyTimeout = 30 * time.Second
	DefaultRedisAddr    = "127.0.0.1:6379"
	DefaultParallelism  = 8
)

// Settings holds persistent user preferences
type Settings struct {
	// Inventory is the hosts.yaml file listing managed switches
	Inventory string `json:"inventory,omitempty"`

	// HistoryBackend selects where change history is kept: file or redis
	HistoryBackend string `json:"history_backend,omitempty"`
	HistoryDir     string `json:"history_dir,omitempty"`
	RedisAddr      string `json:"redis_addr,omitempty"`
	RedisDB        int    `json:"redis_db,omitempty"`
	RedisPrefix    string `json:"redis_prefix,omitempty"`

	AuditLog       string `json:"audit_log,omitempty"`
	LogFile        string `json:"log_file,omitempty"`
	MetricsFile    string `json:"metrics_file,omitempty"`
	KnownHostsFile string `json:"known_hosts_file,omitempty"`

	// Durations in Go syntax, e.g. "5s"
	ProbeTimeout string `json:"probe_timeout,omitempty"`
	ApplyTimeout string `json:"apply_timeout,omitempty"`

	Parallelism int    `json:"parallelism,omitempty"`
	DefaultUser string `json:"default_user,omitempty"`
}

// Dir returns the portctl state directory (~/.portctl)
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".portctl"
	}
	return filepath.Join(home, ".portctl")
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	return filepath.Join(Dir(), "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path. A missing file yields
// empty settings.
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetInventory returns the inventory path (with fallback)
func (s *Settings) GetInventory() string {
	if s.Inventory != "" {
		return s.Inventory
	}
	return filepath.Join(Dir(), "hosts.yaml")
}

// GetHistoryBackend returns the history backend (with fallback)
func (s *Settings) GetHistoryBackend() string {
	if s.HistoryBackend != "" {
		return s.HistoryBackend
	}
	return BackendFile
}

// GetHistoryDir returns the file-store directory (with fallback)
func (s *Settings) GetHistoryDir() string {
	if s.HistoryDir != "" {
		return s.HistoryDir
	}
	return filepath.Join(Dir(), "history")
}

// GetRedisAddr returns the Redis address (with fallback)
func (s *Settings) GetRedisAddr() string {
	if s.RedisAddr != "" {
		return s.RedisAddr
	}
	return DefaultRedisAddr
}

// GetAuditLog returns the audit log path (with fallback)
func (s *Settings) GetAuditLog() string {
	if s.AuditLog != "" {
		return s.AuditLog
	}
	return filepath.Join(Dir(), "audit.log")
}

// GetProbeTimeout returns the probe timeout; unparseable values fall back
// to the default.
func (s *Settings) GetProbeTimeout() time.Duration {
	return durationOr(s.ProbeTimeout, DefaultProbeTimeout)
}

// GetApplyTimeout returns the apply timeout; unparseable values fall back
// to the default.
func (s *Settings) GetApplyTimeout() time.Duration {
	return durationOr(s.ApplyTimeout, DefaultApplyTimeout)
}

// GetParallelism returns the batch parallelism (with fallback)
func (s *Settings) GetParallelism() int {
	if s.Parallelism > 0 {
		return s.Parallelism
	}
	return DefaultParallelism
}

// GetUser returns the operator name recorded on changes: the configured
// default user, else $USER, else "unknown".
func (s *Settings) GetUser() string {
	if s.DefaultUser != "" {
		return s.DefaultUser
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

func durationOr(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// field binds a settings key to its storage.
type field struct {
	get func(*Settings) string
	set func(*Settings, string) error
}

func stringField(p func(*Settings) *string) field {
	return field{
		get: func(s *Settings) string { return *p(s) },
		set: func(s *Settings, v string) error { *p(s) = v; return nil },
	}
}

func intField(p func(*Settings) *int) field {
	return field{
		get: func(s *Settings) string {
			if *p(s) == 0 {
				return ""
			}
			return strconv.Itoa(*p(s))
		},
		set: func(s *Settings, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("expected a non-negative integer, got %q", v)
			}
			*p(s) = n
			return nil
		},
	}
}

func durationField(p func(*Settings) *string) field {
	return field{
		get: func(s *Settings) string { return *p(s) },
		set: func(s *Settings, v string) error {
			if d, err := time.ParseDuration(v); err != nil || d <= 0 {
				return fmt.Errorf("expected a positive duration such as 5s, got %q", v)
			}
			*p(s) = v
			return nil
		},
	}
}

var fields = map[string]field{
	"inventory": stringField(func(s *Settings) *string { return &s.Inventory }),
	"history_backend": {
		get: func(s *Settings) string { return s.HistoryBackend },
		set: func(s *Settings, v string) error {
			if v != BackendFile && v != BackendRedis {
				return fmt.Errorf("history_backend must be %q or %q", BackendFile, BackendRedis)
			}
			s.HistoryBackend = v
			return nil
		},
	},
	"history_dir":      stringField(func(s *Settings) *string { return &s.HistoryDir }),
	"redis_addr":       stringField(func(s *Settings) *string { return &s.RedisAddr }),
	"redis_db":         intField(func(s *Settings) *int { return &s.RedisDB }),
	"redis_prefix":     stringField(func(s *Settings) *string { return &s.RedisPrefix }),
	"audit_log":        stringField(func(s *Settings) *string { return &s.AuditLog }),
	"log_file":         stringField(func(s *Settings) *string { return &s.LogFile }),
	"metrics_file":     stringField(func(s *Settings) *string { return &s.MetricsFile }),
	"known_hosts_file": stringField(func(s *Settings) *string { return &s.KnownHostsFile }),
	"probe_timeout":    durationField(func(s *Settings) *string { return &s.ProbeTimeout }),
	"apply_timeout":    durationField(func(s *Settings) *string { return &s.ApplyTimeout }),
	"parallelism":      intField(func(s *Settings) *int { return &s.Parallelism }),
	"default_user":     stringField(func(s *Settings) *string { return &s.DefaultUser }),
}

// Keys returns the settable keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the raw stored value of key ("" when unset).
func (s *Settings) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("unknown setting: %s", key)
	}
	return f.get(s), nil
}

// Set validates and stores value under key.
func (s *Settings) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("unknown setting: %s", key)
	}
	if err := f.set(s, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}

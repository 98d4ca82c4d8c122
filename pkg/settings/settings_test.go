package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSettings_Defaults(t *testing.T) {
	s := &Settings{}

	if got := s.GetHistoryBackend(); got != BackendFile {
		t.Errorf("GetHistoryBackend() = %q, want %q", got, BackendFile)
	}
	if got := s.GetProbeTimeout(); got != DefaultProbeTimeout {
		t.Errorf("GetProbeTimeout() = %v", got)
	}
	if got := s.GetApplyTimeout(); got != DefaultApplyTimeout {
		t.Errorf("GetApplyTimeout() = %v", got)
	}
	if got := s.GetRedisAddr(); got != DefaultRedisAddr {
		t.Errorf("GetRedisAddr() = %q", got)
	}
	if got := s.GetParallelism(); got != DefaultParallelism {
		t.Errorf("GetParallelism() = %d", got)
	}
	for name, got := range map[string]string{
		"inventory":   s.GetInventory(),
		"history_dir": s.GetHistoryDir(),
		"audit_log":   s.GetAuditLog(),
	} {
		if !strings.Contains(got, ".portctl") {
			t.Errorf("%s default = %q, want under .portctl", name, got)
		}
	}
}

func TestSettings_BadDurationFallsBack(t *testing.T) {
	s := &Settings{ProbeTimeout: "soon", ApplyTimeout: "-1s"}
	if got := s.GetProbeTimeout(); got != DefaultProbeTimeout {
		t.Errorf("GetProbeTimeout() = %v", got)
	}
	if got := s.GetApplyTimeout(); got != DefaultApplyTimeout {
		t.Errorf("GetApplyTimeout() = %v", got)
	}
}

func TestSettings_SetGet(t *testing.T) {
	tests := []struct {
		key, value string
		wantErr    bool
	}{
		{"inventory", "/etc/portctl/hosts.yaml", false},
		{"history_backend", "redis", false},
		{"history_backend", "git", true},
		{"redis_db", "3", false},
		{"redis_db", "three", true},
		{"probe_timeout", "2s", false},
		{"probe_timeout", "2", true},
		{"parallelism", "4", false},
		{"default_user", "alice", false},
		{"no_such_setting", "x", true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			s := &Settings{}
			err := s.Set(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			got, err := s.Get(tt.key)
			if err != nil || got != tt.value {
				t.Errorf("Get() = %q, %v; want %q", got, err, tt.value)
			}
		})
	}
}

func TestSettings_TypedAfterSet(t *testing.T) {
	s := &Settings{}
	s.Set("apply_timeout", "45s")
	s.Set("parallelism", "2")
	if s.GetApplyTimeout() != 45*time.Second || s.GetParallelism() != 2 {
		t.Errorf("settings = %+v", s)
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	if len(keys) != len(fields) {
		t.Fatalf("Keys() len = %d", len(keys))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Errorf("Keys() not sorted: %v", keys)
		}
	}
}

func TestSettings_Clear(t *testing.T) {
	s := &Settings{Inventory: "x", HistoryBackend: "redis", Parallelism: 3}
	s.Clear()
	if *s != (Settings{}) {
		t.Error("Clear() should reset all fields to empty")
	}
}

func TestSettings_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	s := &Settings{
		Inventory:      "/etc/portctl/hosts.yaml",
		HistoryBackend: BackendRedis,
		RedisDB:        2,
		ProbeTimeout:   "3s",
	}
	if err := s.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if *loaded != *s {
		t.Errorf("loaded = %+v, want %+v", loaded, s)
	}
}

func TestSettings_LoadMissing(t *testing.T) {
	s, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if *s != (Settings{}) {
		t.Errorf("missing file should yield empty settings, got %+v", s)
	}
}

func TestSettings_LoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	os.WriteFile(path, []byte("{not json"), 0644)
	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() should fail on invalid JSON")
	}
}

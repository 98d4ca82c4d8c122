package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/newtron-network/portctl/pkg/model"
	"github.com/newtron-network/portctl/pkg/settings"
)

func TestLoadRequests(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changes.yaml")
	data := `
- device: leaf-01
  interface: Ethernet1/1
  mode: access
  vlan: 100
- device: leaf-01
  interface: Ethernet1/2
  mode: trunk
  vlans: 10-20,30
  force: true
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	reqs, err := loadRequests(path)
	if err != nil {
		t.Fatalf("loadRequests() error = %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("got %d requests, want 2", len(reqs))
	}
	if reqs[0].Mode != model.ModeAccess || reqs[0].VLAN != 100 {
		t.Errorf("reqs[0] = %+v", reqs[0])
	}
	if reqs[1].VLANs != "10-20,30" || !reqs[1].Force {
		t.Errorf("reqs[1] = %+v", reqs[1])
	}
}

func TestLoadRequests_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("[]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadRequests(path); err == nil {
		t.Error("expected error for empty batch")
	}
	if _, err := loadRequests(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBuildRequest(t *testing.T) {
	defer func() {
		deviceName, interfaceName = "", ""
		changeMode, changeVLANs = "", ""
	}()

	deviceName, interfaceName = "", ""
	if _, err := buildRequest(); err == nil {
		t.Error("expected error without -d")
	}

	deviceName, interfaceName = "leaf-01", "Ethernet1/2"
	changeMode, changeVLANs = "TRUNK", "10-20"
	req, err := buildRequest()
	if err != nil {
		t.Fatalf("buildRequest() error = %v", err)
	}
	if req.Mode != model.ModeTrunk {
		t.Errorf("Mode = %q, want trunk", req.Mode)
	}
	if err := req.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestSkipsApp(t *testing.T) {
	tests := []struct {
		cmd  *cobra.Command
		want bool
	}{
		{settingsSetCmd, true},
		{versionCmd, true},
		{configureCmd, false},
		{historyCmd, false},
	}
	for _, tt := range tests {
		if got := skipsApp(tt.cmd); got != tt.want {
			t.Errorf("skipsApp(%s) = %v, want %v", tt.cmd.Name(), got, tt.want)
		}
	}
}

func TestSettingsSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	defer func() { settingsPath = "" }()

	rootCmd.SetArgs([]string{"--settings", path, "settings", "set", "parallelism", "4"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("settings set: %v", err)
	}

	s, err := settings.LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.GetParallelism() != 4 {
		t.Errorf("parallelism = %d, want 4", s.GetParallelism())
	}

	rootCmd.SetArgs([]string{"--settings", path, "settings", "set", "probe_timeout", "soon"})
	if err := rootCmd.Execute(); err == nil {
		t.Error("expected error for invalid duration")
	}
}

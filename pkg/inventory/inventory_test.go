package inventory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/newtron-network/portctl/pkg/util"
)

const sampleInventory = `
defaults:
  username: admin
  password_env: PORTCTL_TEST_PASSWORD
  site: dc1
hosts:
  leaf-01:
    hostname: 192.0.2.11
    role: leaf
  spine-01:
    hostname: 192.0.2.1
    role: spine
    port: 2222
    username: netops
    password: s3cret
`

func TestParse(t *testing.T) {
	inv, err := Parse([]byte(sampleInventory))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	ref, err := inv.Device("leaf-01")
	if err != nil {
		t.Fatalf("Device: %v", err)
	}
	if ref.Address != "192.0.2.11" || ref.Platform != "nxos" {
		t.Errorf("leaf-01 = %+v", ref)
	}

	if _, err := inv.Device("leaf-99"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("unknown device err = %v, want ErrNotFound", err)
	}

	devices := inv.Devices()
	if len(devices) != 2 || devices[0].Ref.Name != "leaf-01" || devices[1].Ref.Name != "spine-01" {
		t.Fatalf("Devices = %+v", devices)
	}
	if devices[0].Site != "dc1" || devices[1].Role != "spine" {
		t.Errorf("Devices = %+v", devices)
	}
}

func TestCredentials(t *testing.T) {
	t.Setenv("PORTCTL_TEST_PASSWORD", "from-env")

	inv, err := Parse([]byte(sampleInventory))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	c, err := inv.Credentials("leaf-01")
	if err != nil {
		t.Fatalf("Credentials: %v", err)
	}
	if c.Username != "admin" || c.Password != "from-env" {
		t.Errorf("leaf-01 credentials = %+v", c)
	}

	c, err = inv.Credentials("spine-01")
	if err != nil {
		t.Fatalf("Credentials: %v", err)
	}
	if c.Username != "netops" || c.Password != "s3cret" || c.Port != 2222 {
		t.Errorf("spine-01 credentials = %+v", c)
	}
}

func TestCredentials_Prompt(t *testing.T) {
	inv, err := Parse([]byte("hosts:\n  leaf-01:\n    hostname: 192.0.2.11\n    username: admin\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var prompted string
	inv.PasswordPrompt = func(device, username string) (string, error) {
		prompted = device + "/" + username
		return "typed", nil
	}

	c, err := inv.Credentials("leaf-01")
	if err != nil {
		t.Fatalf("Credentials: %v", err)
	}
	if c.Password != "typed" || prompted != "leaf-01/admin" {
		t.Errorf("password = %q, prompted = %q", c.Password, prompted)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing hostname", "hosts:\n  leaf-01:\n    role: leaf\n"},
		{"unsupported platform", "hosts:\n  leaf-01:\n    hostname: 192.0.2.11\n    platform: eos\n"},
		{"malformed", "hosts: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("Parse should fail")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.yaml")
	if err := os.WriteFile(path, []byte(sampleInventory), 0644); err != nil {
		t.Fatal(err)
	}
	inv, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(inv.Devices()) != 2 {
		t.Errorf("Devices = %d, want 2", len(inv.Devices()))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of missing file should fail")
	}
}

func TestPolicy(t *testing.T) {
	inv, err := Parse([]byte(sampleInventory + `
policy:
  super_users: [admin]
  user_groups:
    neteng: [alice]
  permissions:
    port.configure: [neteng]
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	p := inv.Policy()
	if p.IsEmpty() {
		t.Fatal("policy should not be empty")
	}
	if got := p.Permissions["port.configure"]; len(got) != 1 || got[0] != "neteng" {
		t.Errorf("port.configure = %v", got)
	}

	plain, err := Parse([]byte(sampleInventory))
	if err != nil {
		t.Fatal(err)
	}
	if !plain.Policy().IsEmpty() {
		t.Error("inventory without policy block should have an empty policy")
	}
}

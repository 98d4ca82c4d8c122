// Package inventory loads the managed-device inventory from a YAML hosts
// file and resolves device names to DeviceRefs and SSH credentials.
//
// File format:
//
//	defaults:
//	  platform: nxos
//	  username: admin
//	  password_env: PORTCTL_PASSWORD
//	hosts:
//	  leaf-01:
//	    hostname: 192.0.2.11
//	    role: leaf
//	    site: dc1
//	  spine-01:
//	    hostname: 192.0.2.1
//	    port: 2222
//	policy:
//	  permissions:
//	    port.configure: [neteng]
package inventory

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/portctl/pkg/auth"
	"github.com/newtron-network/portctl/pkg/device"
	"github.com/newtron-network/portctl/pkg/model"
	"github.com/newtron-network/portctl/pkg/util"
)

// Host is one inventory entry. Empty fields inherit from defaults.
type Host struct {
	Hostname    string `yaml:"hostname"`
	Platform    string `yaml:"platform,omitempty"`
	Port        int    `yaml:"port,omitempty"`
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	PasswordEnv string `yaml:"password_env,omitempty"`
	KeyFile     string `yaml:"key_file,omitempty"`
	Role        string `yaml:"role,omitempty"`
	Site        string `yaml:"site,omitempty"`
}

type file struct {
	Defaults Host            `yaml:"defaults"`
	Hosts    map[string]Host `yaml:"hosts"`
	Policy   auth.Policy     `yaml:"policy"`
}

// Device is a listing row for the inventory.
type Device struct {
	Ref  model.DeviceRef `json:"ref"`
	Role string          `json:"role,omitempty"`
	Site string          `json:"site,omitempty"`
}

// Inventory is an immutable, loaded hosts file.
type Inventory struct {
	hosts  map[string]Host
	policy auth.Policy

	// PasswordPrompt is consulted when a host has no password from the
	// file or environment. Nil means no prompt.
	PasswordPrompt func(device, username string) (string, error)
}

// Load reads and validates an inventory file.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory: %w", err)
	}
	return Parse(data)
}

// Parse builds an inventory from YAML bytes.
func Parse(data []byte) (*Inventory, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing inventory: %w", err)
	}

	v := &util.ValidationBuilder{}
	hosts := make(map[string]Host, len(f.Hosts))
	for name, h := range f.Hosts {
		h = merge(f.Defaults, h)
		if h.Platform == "" {
			h.Platform = model.PlatformNXOS
		}
		v.Add(h.Hostname != "", fmt.Sprintf("host %s: hostname is required", name))
		v.Add(h.Platform == model.PlatformNXOS, fmt.Sprintf("host %s: unsupported platform %q", name, h.Platform))
		hosts[name] = h
	}
	if err := v.Build(); err != nil {
		return nil, err
	}

	return &Inventory{hosts: hosts, policy: f.Policy}, nil
}

// Policy returns the access policy from the inventory's policy block.
func (inv *Inventory) Policy() *auth.Policy {
	return &inv.policy
}

func merge(defaults, h Host) Host {
	if h.Platform == "" {
		h.Platform = defaults.Platform
	}
	if h.Port == 0 {
		h.Port = defaults.Port
	}
	if h.Username == "" {
		h.Username = defaults.Username
	}
	if h.Password == "" && h.PasswordEnv == "" {
		h.Password = defaults.Password
		h.PasswordEnv = defaults.PasswordEnv
	}
	if h.KeyFile == "" {
		h.KeyFile = defaults.KeyFile
	}
	if h.Site == "" {
		h.Site = defaults.Site
	}
	return h
}

// Device resolves a device name.
func (inv *Inventory) Device(name string) (model.DeviceRef, error) {
	h, ok := inv.hosts[name]
	if !ok {
		return model.DeviceRef{}, fmt.Errorf("device %q: %w", name, util.ErrNotFound)
	}
	return model.DeviceRef{Name: name, Address: h.Hostname, Platform: h.Platform}, nil
}

// Devices lists the inventory sorted by name.
func (inv *Inventory) Devices() []Device {
	names := make([]string, 0, len(inv.hosts))
	for name := range inv.hosts {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Device, 0, len(names))
	for _, name := range names {
		h := inv.hosts[name]
		out = append(out, Device{
			Ref:  model.DeviceRef{Name: name, Address: h.Hostname, Platform: h.Platform},
			Role: h.Role,
			Site: h.Site,
		})
	}
	return out
}

// Credentials implements device.CredentialSource.
func (inv *Inventory) Credentials(name string) (device.Credentials, error) {
	h, ok := inv.hosts[name]
	if !ok {
		return device.Credentials{}, fmt.Errorf("device %q: %w", name, util.ErrNotFound)
	}

	pass := h.Password
	if pass == "" && h.PasswordEnv != "" {
		pass = os.Getenv(h.PasswordEnv)
	}
	if pass == "" && h.KeyFile == "" && inv.PasswordPrompt != nil {
		var err error
		if pass, err = inv.PasswordPrompt(name, h.Username); err != nil {
			return device.Credentials{}, fmt.Errorf("reading password for %s: %w", name, err)
		}
	}

	return device.Credentials{
		Username: h.Username,
		Password: pass,
		KeyFile:  h.KeyFile,
		Port:     h.Port,
	}, nil
}

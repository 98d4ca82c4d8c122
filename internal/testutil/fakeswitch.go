// Package testutil provides test helpers: an in-memory NX-OS-like switch
// implementing the device session contract, and Redis helpers for
// integration tests.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/newtron-network/portctl/pkg/device"
	"github.com/newtron-network/portctl/pkg/model"
)

// FakePort is the simulated state of one switch port.
type FakePort struct {
	Admin  string
	Oper   string
	MACs   []string // NX-OS dotted format, e.g. "0050.56aa.0001"
	Config []string // running-config lines, header first

	// EthMode is the "eth_mode" reported by show interface. Pushing a
	// "switchport mode" line updates it.
	EthMode string
}

// PushRecord is one configuration block received by the fake.
type PushRecord struct {
	Device string
	Config string
}

// FakeSwitch answers the probe's show commands with NX-OS style output and
// applies pushed interface blocks by replacing the port's running config.
// One FakeSwitch can stand in for any number of devices.
type FakeSwitch struct {
	mu     sync.Mutex
	ports  map[string]*FakePort // keyed by InterfaceRef.Key()
	pushes []PushRecord
	opens  int
	closes int

	// OpenErr makes every Open fail.
	OpenErr error
	// OnPush runs before a push is applied; a non-nil error fails the push
	// without changing state.
	OnPush func(ctx context.Context, dev model.DeviceRef, config string) error
	// IgnorePush accepts pushes without changing running config.
	IgnorePush bool
	// HideDefaults drops default switchport lines from pushed blocks the way
	// NX-OS omits them from running-config.
	HideDefaults bool
}

// NewFakeSwitch creates an empty fake.
func NewFakeSwitch() *FakeSwitch {
	return &FakeSwitch{ports: make(map[string]*FakePort)}
}

// AddPort registers a port. An empty Config gets a bare interface header.
func (f *FakeSwitch) AddPort(dev, iface string, p FakePort) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p.Admin == "" {
		p.Admin = model.StatusUp
	}
	if p.Oper == "" {
		p.Oper = model.StatusDown
	}
	if len(p.Config) == 0 {
		p.Config = []string{"interface " + iface}
	}
	f.ports[model.InterfaceRef{Device: dev, Name: iface}.Key()] = &p
}

// SetOper changes a port's operational status and learned MACs.
func (f *FakeSwitch) SetOper(dev, iface, oper string, macs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.ports[model.InterfaceRef{Device: dev, Name: iface}.Key()]; ok {
		p.Oper = oper
		p.MACs = macs
	}
}

// RunningConfig returns a copy of a port's running config.
func (f *FakeSwitch) RunningConfig(dev, iface string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.ports[model.InterfaceRef{Device: dev, Name: iface}.Key()]
	if !ok {
		return nil
	}
	return append([]string(nil), p.Config...)
}

// Pushes returns all pushes received so far.
func (f *FakeSwitch) Pushes() []PushRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]PushRecord(nil), f.pushes...)
}

// OpenSessions returns the number of sessions opened and not yet closed.
func (f *FakeSwitch) OpenSessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens - f.closes
}

// Open implements device.Opener.
func (f *FakeSwitch) Open(ctx context.Context, dev model.DeviceRef) (device.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	f.opens++
	return &fakeSession{sw: f, dev: dev}, nil
}

type fakeSession struct {
	sw     *FakeSwitch
	dev    model.DeviceRef
	closed bool
}

func (s *fakeSession) Query(ctx context.Context, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.sw.mu.Lock()
	defer s.sw.mu.Unlock()

	switch {
	case command == "show version | json":
		return marshal(map[string]any{
			"host_name":   s.dev.Name,
			"sys_ver_str": "9.3(8)",
		}), nil

	case command == "show interface brief | json":
		var rows []any
		for _, key := range sortedKeys(s.sw.ports) {
			if dev, name, _ := strings.Cut(key, "|"); dev == s.dev.Name {
				p := s.sw.ports[key]
				rows = append(rows, map[string]any{"interface": name, "state": p.Oper, "admin_state": p.Admin})
			}
		}
		return marshal(map[string]any{
			"TABLE_interface": map[string]any{"ROW_interface": rows},
		}), nil

	case strings.HasPrefix(command, "show interface ") && strings.HasSuffix(command, " | json"):
		name := strings.TrimSuffix(strings.TrimPrefix(command, "show interface "), " | json")
		p, ok := s.sw.ports[s.key(name)]
		if !ok {
			return "", fmt.Errorf("%w: ERROR: %s: interface does not exist", device.ErrCommandRejected, name)
		}
		row := map[string]any{
			"interface":   name,
			"state":       p.Oper,
			"admin_state": p.Admin,
		}
		if p.EthMode != "" {
			row["eth_mode"] = p.EthMode
		}
		return marshal(map[string]any{
			"TABLE_interface": map[string]any{"ROW_interface": row},
		}), nil

	case strings.HasPrefix(command, "show mac address-table interface "):
		name := strings.TrimSuffix(strings.TrimPrefix(command, "show mac address-table interface "), " | json")
		p, ok := s.sw.ports[s.key(name)]
		if !ok {
			return "", fmt.Errorf("%w: invalid interface %s", device.ErrCommandRejected, name)
		}
		if len(p.MACs) == 0 {
			return "", nil
		}
		rows := make([]any, 0, len(p.MACs))
		for _, mac := range p.MACs {
			rows = append(rows, map[string]any{"disp_mac_addr": mac, "disp_port": name})
		}
		return marshal(map[string]any{
			"TABLE_mac_address": map[string]any{"ROW_mac_address": rows},
		}), nil

	case strings.HasPrefix(command, "show running-config interface "):
		name := strings.TrimPrefix(command, "show running-config interface ")
		p, ok := s.sw.ports[s.key(name)]
		if !ok {
			return "", fmt.Errorf("%w: invalid interface %s", device.ErrCommandRejected, name)
		}
		var sb strings.Builder
		sb.WriteString("!Command: show running-config interface " + name + "\n")
		sb.WriteString("!Time: Mon Oct 19 10:00:00 2026\n\n")
		sb.WriteString("version 9.3(8) Bios:version 05.45\n\n")
		sb.WriteString(strings.Join(p.Config, "\n"))
		sb.WriteString("\n")
		return sb.String(), nil
	}

	return "", fmt.Errorf("%w: %s", device.ErrCommandRejected, command)
}

func (s *fakeSession) Push(ctx context.Context, config string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.sw.OnPush != nil {
		if err := s.sw.OnPush(ctx, s.dev, config); err != nil {
			return err
		}
	}

	s.sw.mu.Lock()
	defer s.sw.mu.Unlock()

	s.sw.pushes = append(s.sw.pushes, PushRecord{Device: s.dev.Name, Config: config})

	lines := strings.Split(config, "\n")
	name := strings.TrimPrefix(lines[0], "interface ")
	p, ok := s.sw.ports[s.key(name)]
	if !ok {
		return fmt.Errorf("%w: invalid interface %s", device.ErrCommandRejected, name)
	}
	if s.sw.IgnorePush {
		return nil
	}
	p.Config = nil
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "shutdown":
			p.Admin = model.StatusDown
		case trimmed == "no shutdown":
			p.Admin = model.StatusUp
		case strings.HasPrefix(trimmed, "switchport mode "):
			p.EthMode = strings.TrimPrefix(trimmed, "switchport mode ")
		}
		if s.sw.HideDefaults && hiddenDefault(trimmed) {
			continue
		}
		p.Config = append(p.Config, line)
	}
	return nil
}

func (s *fakeSession) Close() error {
	s.sw.mu.Lock()
	defer s.sw.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.sw.closes++
	}
	return nil
}

func (s *fakeSession) key(iface string) string {
	return model.InterfaceRef{Device: s.dev.Name, Name: iface}.Key()
}

func hiddenDefault(line string) bool {
	switch line {
	case "switchport", "switchport mode access", "switchport access vlan 1":
		return true
	}
	return false
}

func sortedKeys(m map[string]*FakePort) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func marshal(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

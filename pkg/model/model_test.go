package model

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/newtron-network/portctl/pkg/util"
)

func TestChangeRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     ChangeRequest
		wantErr string
	}{
		{
			name: "valid access",
			req:  ChangeRequest{Device: "leaf-01", Interface: "Ethernet1/1", Mode: ModeAccess, VLAN: 100},
		},
		{
			name: "valid trunk with vxlan",
			req:  ChangeRequest{Device: "leaf-01", Interface: "Ethernet1/2", Mode: ModeTrunk, VLANs: "10-20,30", VNI: 10010, VRF: "tenant-a"},
		},
		{
			name:    "access without vlan",
			req:     ChangeRequest{Device: "leaf-01", Interface: "Ethernet1/1", Mode: ModeAccess},
			wantErr: "access mode requires a single vlan",
		},
		{
			name:    "access with list",
			req:     ChangeRequest{Device: "leaf-01", Interface: "Ethernet1/1", Mode: ModeAccess, VLAN: 100, VLANs: "100-101"},
			wantErr: "access mode does not accept a vlan list",
		},
		{
			name:    "trunk without list",
			req:     ChangeRequest{Device: "leaf-01", Interface: "Ethernet1/1", Mode: ModeTrunk},
			wantErr: "trunk mode requires a vlan list",
		},
		{
			name:    "trunk with single vlan",
			req:     ChangeRequest{Device: "leaf-01", Interface: "Ethernet1/1", Mode: ModeTrunk, VLAN: 10, VLANs: "10"},
			wantErr: "trunk mode takes a vlan list",
		},
		{
			name:    "trunk range past vlan limit",
			req:     ChangeRequest{Device: "leaf-01", Interface: "Ethernet1/1", Mode: ModeTrunk, VLANs: "1-9999999999"},
			wantErr: "out of range",
		},
		{
			name:    "unknown mode",
			req:     ChangeRequest{Device: "leaf-01", Interface: "Ethernet1/1", Mode: "routed", VLAN: 10},
			wantErr: "mode must be",
		},
		{
			name:    "vlan out of range",
			req:     ChangeRequest{Device: "leaf-01", Interface: "Ethernet1/1", Mode: ModeAccess, VLAN: 4095},
			wantErr: "out of range",
		},
		{
			name:    "bad vni",
			req:     ChangeRequest{Device: "leaf-01", Interface: "Ethernet1/1", Mode: ModeAccess, VLAN: 10, VNI: -1},
			wantErr: "VNI",
		},
		{
			name:    "multiline description",
			req:     ChangeRequest{Device: "leaf-01", Interface: "Ethernet1/1", Mode: ModeAccess, VLAN: 10, Description: "a\nshutdown"},
			wantErr: "single line",
		},
		{
			name:    "missing device",
			req:     ChangeRequest{Interface: "Ethernet1/1", Mode: ModeAccess, VLAN: 10},
			wantErr: "device is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
			if !errors.Is(err, util.ErrInvalidChangeRequest) {
				t.Errorf("Validate() error should unwrap to ErrInvalidChangeRequest")
			}
		})
	}
}

func TestChangeRequest_VLANAssignment(t *testing.T) {
	access := ChangeRequest{Mode: ModeAccess, VLAN: 100}
	if got := access.VLANAssignment(); got != "100" {
		t.Errorf("access VLANAssignment = %q", got)
	}
	trunk := ChangeRequest{Mode: ModeTrunk, VLANs: "30, 10-12,11"}
	if got := trunk.VLANAssignment(); got != "10-12,30" {
		t.Errorf("trunk VLANAssignment = %q", got)
	}
	bad := ChangeRequest{Mode: ModeTrunk, VLANs: "x"}
	if got := bad.VLANAssignment(); got != "" {
		t.Errorf("invalid VLANAssignment = %q, want empty", got)
	}
}

func TestDeviceSnapshot_Matches(t *testing.T) {
	snap := DeviceSnapshot{Exists: true, Mode: ModeTrunk, VLANs: "10-12,30"}

	if !snap.Matches(ChangeRequest{Mode: ModeTrunk, VLANs: "30,10,11,12"}) {
		t.Error("equivalent trunk list should match")
	}
	if snap.Matches(ChangeRequest{Mode: ModeAccess, VLAN: 10}) {
		t.Error("mode change should not match")
	}
	if (DeviceSnapshot{Mode: ModeTrunk, VLANs: "10-12,30"}).Matches(ChangeRequest{Mode: ModeTrunk, VLANs: "10-12,30"}) {
		t.Error("missing interface should never match")
	}
}

func TestDeviceSnapshot_HasActiveTraffic(t *testing.T) {
	tests := []struct {
		oper string
		macs []string
		want bool
	}{
		{StatusUp, []string{"00:00:5e:00:53:01"}, true},
		{StatusUp, nil, false},
		{StatusDown, []string{"00:00:5e:00:53:01"}, false},
	}
	for _, tt := range tests {
		s := DeviceSnapshot{OperStatus: tt.oper, MACAddresses: tt.macs}
		if got := s.HasActiveTraffic(); got != tt.want {
			t.Errorf("HasActiveTraffic(%s, %v) = %v, want %v", tt.oper, tt.macs, got, tt.want)
		}
	}
}

func TestNewPreCheckResult(t *testing.T) {
	v := PreCheckVerdict{
		Safe:            true,
		Reasons:         []string{"pre-checks passed"},
		Recommendations: []string{"no MAC addresses learned - safe to reconfigure"},
		Observed: DeviceSnapshot{
			Exists:      true,
			AdminStatus: StatusUp,
			OperStatus:  StatusDown,
			Mode:        ModeAccess,
			VLANs:       "10",
			Description: "Uplink to Core",
		},
	}

	res := NewPreCheckResult(v)
	if !res.PortExists || !res.IsSafeToConfigure {
		t.Errorf("result = %+v", res)
	}
	want := []string{"pre-checks passed", "no MAC addresses learned - safe to reconfigure"}
	if !reflect.DeepEqual(res.Recommendations, want) {
		t.Errorf("Recommendations = %v, want %v", res.Recommendations, want)
	}
	if res.MACAddresses == nil {
		t.Error("MACAddresses should be an empty slice, not nil")
	}
	if res.CurrentConfig["vlan"] != "10" || res.CurrentConfig["description"] != "Uplink to Core" {
		t.Errorf("CurrentConfig = %v", res.CurrentConfig)
	}
}

func TestHistoryEntry_Summary(t *testing.T) {
	e := HistoryEntry{
		ID:         "abc123",
		Interface:  InterfaceRef{Device: "leaf-01", Name: "Ethernet1/1"},
		Artifact:   ConfigArtifact{Request: ChangeRequest{Mode: ModeAccess, VLAN: 100}},
		Applied:    true,
		RollbackOf: "def456",
	}
	s := e.Summary()
	if s.VLANs != "100" || s.Device != "leaf-01" || !s.Applied {
		t.Errorf("Summary = %+v", s)
	}
	if s.Message != "Rollback leaf-01 Ethernet1/1 to def456" {
		t.Errorf("Message = %q", s.Message)
	}
}

func TestContentHash(t *testing.T) {
	a := ContentHash("interface Ethernet1/1")
	b := ContentHash("interface Ethernet1/1")
	c := ContentHash("interface Ethernet1/2")
	if a != b {
		t.Error("ContentHash not deterministic")
	}
	if a == c {
		t.Error("ContentHash collision on different text")
	}
	if len(a) != 64 {
		t.Errorf("ContentHash length = %d", len(a))
	}
}

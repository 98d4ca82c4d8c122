package render

import (
	"errors"
	"testing"

	"github.com/newtron-network/portctl/pkg/model"
	"github.com/newtron-network/portctl/pkg/util"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		req  model.ChangeRequest
		want string
	}{
		{
			name: "access",
			req:  model.ChangeRequest{Device: "leaf-01", Interface: "Ethernet1/1", Mode: model.ModeAccess, VLAN: 100},
			want: "interface Ethernet1/1\n" +
				"  switchport\n" +
				"  switchport mode access\n" +
				"  switchport access vlan 100\n" +
				"  no shutdown",
		},
		{
			name: "trunk list is canonicalized",
			req:  model.ChangeRequest{Device: "leaf-01", Interface: "Ethernet1/2", Mode: model.ModeTrunk, VLANs: "30, 10-20,15"},
			want: "interface Ethernet1/2\n" +
				"  switchport\n" +
				"  switchport mode trunk\n" +
				"  switchport trunk allowed vlan 10-20,30\n" +
				"  no shutdown",
		},
		{
			name: "all optional fields",
			req: model.ChangeRequest{
				Device: "leaf-01", Interface: "Ethernet1/3", Mode: model.ModeAccess, VLAN: 200,
				VNI: 10200, VRF: "tenant-a", Description: "web-01 eth0",
			},
			want: "interface Ethernet1/3\n" +
				"  description web-01 eth0\n" +
				"  switchport\n" +
				"  switchport mode access\n" +
				"  switchport access vlan 200\n" +
				"  vxlan\n" +
				"    vni 10200\n" +
				"  vrf member tenant-a\n" +
				"  no shutdown",
		},
		{
			name: "blank description is omitted",
			req:  model.ChangeRequest{Device: "leaf-01", Interface: "Ethernet1/4", Mode: model.ModeAccess, VLAN: 100, Description: "   "},
			want: "interface Ethernet1/4\n" +
				"  switchport\n" +
				"  switchport mode access\n" +
				"  switchport access vlan 100\n" +
				"  no shutdown",
		},
		{
			name: "description is trimmed",
			req:  model.ChangeRequest{Device: "leaf-01", Interface: "Ethernet1/5", Mode: model.ModeAccess, VLAN: 100, Description: "  uplink \t"},
			want: "interface Ethernet1/5\n" +
				"  description uplink\n" +
				"  switchport\n" +
				"  switchport mode access\n" +
				"  switchport access vlan 100\n" +
				"  no shutdown",
		},
	}

	r := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := r.Render(tt.req)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if a.Text != tt.want {
				t.Errorf("Text =\n%s\nwant\n%s", a.Text, tt.want)
			}
			if a.Hash != model.ContentHash(tt.want) {
				t.Errorf("Hash = %s, want hash of text", a.Hash)
			}
			if a.TemplateVersion != TemplateVersion {
				t.Errorf("TemplateVersion = %q", a.TemplateVersion)
			}
			if a.Request != tt.req {
				t.Errorf("Request = %+v, want %+v", a.Request, tt.req)
			}
		})
	}
}

func TestRender_Deterministic(t *testing.T) {
	req := model.ChangeRequest{Device: "leaf-01", Interface: "Ethernet1/1", Mode: model.ModeTrunk, VLANs: "10-12"}
	a, _ := New().Render(req)
	b, _ := New().Render(req)
	if a != b {
		t.Errorf("two renders differ: %+v vs %+v", a, b)
	}
}

func TestRender_Invalid(t *testing.T) {
	tests := []struct {
		name string
		req  model.ChangeRequest
	}{
		{"access without vlan", model.ChangeRequest{Device: "d", Interface: "Ethernet1/1", Mode: model.ModeAccess}},
		{"access with list", model.ChangeRequest{Device: "d", Interface: "Ethernet1/1", Mode: model.ModeAccess, VLAN: 10, VLANs: "10-20"}},
		{"trunk without list", model.ChangeRequest{Device: "d", Interface: "Ethernet1/1", Mode: model.ModeTrunk}},
		{"vlan out of range", model.ChangeRequest{Device: "d", Interface: "Ethernet1/1", Mode: model.ModeAccess, VLAN: 4095}},
		{"bad mode", model.ChangeRequest{Device: "d", Interface: "Ethernet1/1", Mode: "routed", VLAN: 10}},
		{"multi-line description", model.ChangeRequest{Device: "d", Interface: "Ethernet1/1", Mode: model.ModeAccess, VLAN: 10, Description: "a\nshutdown"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Render(tt.req)
			if !errors.Is(err, util.ErrInvalidChangeRequest) {
				t.Errorf("Render() error = %v, want ErrInvalidChangeRequest", err)
			}
		})
	}
}

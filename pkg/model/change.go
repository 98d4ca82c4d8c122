package model

import (
	"strings"
	"unicode"

	"github.com/newtron-network/portctl/pkg/util"
)

// Mode is the switchport mode requested for an interface.
type Mode string

const (
	ModeAccess Mode = "access"
	ModeTrunk  Mode = "trunk"
)

// Field limits enforced by NX-OS.
const (
	MaxDescriptionLen = 254
	MaxVRFNameLen     = 32
)

// ChangeRequest is operator intent for a single interface.
//
// Access mode requires VLAN and forbids VLANs; trunk mode requires VLANs
// (range notation, e.g. "10-20,30") and forbids VLAN.
type ChangeRequest struct {
	Device      string `json:"device" yaml:"device"`
	Interface   string `json:"interface" yaml:"interface"`
	Mode        Mode   `json:"mode" yaml:"mode"`
	VLAN        int    `json:"vlan,omitempty" yaml:"vlan,omitempty"`
	VLANs       string `json:"vlans,omitempty" yaml:"vlans,omitempty"`
	VNI         int    `json:"vni,omitempty" yaml:"vni,omitempty"`
	VRF         string `json:"vrf,omitempty" yaml:"vrf,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Force       bool   `json:"force,omitempty" yaml:"force,omitempty"`
}

// Target returns the interface the request applies to.
func (r ChangeRequest) Target() InterfaceRef {
	return InterfaceRef{Device: r.Device, Name: r.Interface}
}

// Validate checks mode/field consistency and value ranges.
func (r ChangeRequest) Validate() error {
	v := &util.ValidationBuilder{}

	v.Add(r.Device != "", "device is required")
	v.Add(r.Interface != "", "interface is required")
	v.Add(!strings.ContainsFunc(r.Interface, unicode.IsSpace), "interface name must not contain whitespace")

	switch r.Mode {
	case ModeAccess:
		if r.VLAN == 0 {
			v.AddError("access mode requires a single vlan")
		} else if err := util.ValidateVLANID(r.VLAN); err != nil {
			v.AddError(err.Error())
		}
		v.Add(r.VLANs == "", "access mode does not accept a vlan list")
	case ModeTrunk:
		v.Add(r.VLAN == 0, "trunk mode takes a vlan list, not a single vlan")
		if strings.TrimSpace(r.VLANs) == "" {
			v.AddError("trunk mode requires a vlan list")
		} else if _, err := util.ParseVLANList(r.VLANs); err != nil {
			v.AddErrorf("invalid vlan list %q: %v", r.VLANs, err)
		}
	default:
		v.AddErrorf("mode must be %q or %q, got %q", ModeAccess, ModeTrunk, r.Mode)
	}

	if r.VNI != 0 {
		if err := util.ValidateVNI(r.VNI); err != nil {
			v.AddError(err.Error())
		}
	}
	if r.VRF != "" {
		v.Add(!strings.ContainsFunc(r.VRF, unicode.IsSpace), "vrf name must not contain whitespace")
		v.Add(len(r.VRF) <= MaxVRFNameLen, "vrf name too long")
	}
	if r.Description != "" {
		v.Add(!strings.ContainsAny(r.Description, "\r\n"), "description must be a single line")
		v.Add(len(r.Description) <= MaxDescriptionLen, "description too long")
	}

	return v.Build()
}

// VLANAssignment returns the canonical VLAN assignment string: the access
// VLAN ("100") or the compacted trunk list ("10-20,30"). Invalid requests
// yield "".
func (r ChangeRequest) VLANAssignment() string {
	switch r.Mode {
	case ModeAccess:
		if r.VLAN == 0 {
			return ""
		}
		return util.FormatRange([]int{r.VLAN})
	case ModeTrunk:
		vlans, err := util.ParseVLANList(r.VLANs)
		if err != nil {
			return ""
		}
		return util.FormatRange(vlans)
	}
	return ""
}

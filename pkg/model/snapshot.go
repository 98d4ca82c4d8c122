package model

import (
	"strconv"
	"time"
)

// Interface status values as reported by the device.
const (
	StatusUp   = "up"
	StatusDown = "down"
)

// DeviceSnapshot is the observed state of one interface at one instant.
// Produced fresh by every probe and never mutated.
type DeviceSnapshot struct {
	Interface    InterfaceRef `json:"interface"`
	Exists       bool         `json:"exists"`
	AdminStatus  string       `json:"admin_status,omitempty"`
	OperStatus   string       `json:"oper_status,omitempty"`
	MACAddresses []string     `json:"mac_addresses,omitempty"`
	ConfigLines  []string     `json:"config_lines,omitempty"`

	// Parsed from ConfigLines
	Description string `json:"description,omitempty"`
	Mode        Mode   `json:"mode,omitempty"`
	VLANs       string `json:"vlans,omitempty"` // canonical assignment, see ChangeRequest.VLANAssignment
	VNI         int    `json:"vni,omitempty"`
	VRF         string `json:"vrf,omitempty"`
	Shutdown    bool   `json:"shutdown,omitempty"`

	ObservedAt time.Time `json:"observed_at"`
}

// HasActiveTraffic reports whether the port is up with learned MACs.
func (s DeviceSnapshot) HasActiveTraffic() bool {
	return s.OperStatus == StatusUp && len(s.MACAddresses) > 0
}

// Matches reports whether the observed mode and VLAN assignment equal the
// request's.
func (s DeviceSnapshot) Matches(req ChangeRequest) bool {
	want := req.VLANAssignment()
	return s.Exists && want != "" && s.Mode == req.Mode && s.VLANs == want
}

// CurrentConfig summarizes the parsed configuration as flat key/values.
func (s DeviceSnapshot) CurrentConfig() map[string]string {
	cfg := make(map[string]string)
	if s.Description != "" {
		cfg["description"] = s.Description
	}
	if s.Mode != "" {
		cfg["mode"] = string(s.Mode)
	}
	if s.VLANs != "" {
		cfg["vlan"] = s.VLANs
	}
	if s.VNI != 0 {
		cfg["vni"] = strconv.Itoa(s.VNI)
	}
	if s.VRF != "" {
		cfg["vrf"] = s.VRF
	}
	if s.Exists {
		if s.Shutdown {
			cfg["admin"] = "shutdown"
		} else {
			cfg["admin"] = "no shutdown"
		}
	}
	return cfg
}

// PreCheckVerdict is the outcome of evaluating a request against live state.
type PreCheckVerdict struct {
	Safe            bool           `json:"is_safe"`
	NoOp            bool           `json:"no_op,omitempty"`
	Forced          bool           `json:"forced,omitempty"`
	Reasons         []string       `json:"reasons"`
	Recommendations []string       `json:"recommendations,omitempty"`
	Observed        DeviceSnapshot `json:"observed"`

	// Cause is the pipeline sentinel behind an unsafe verdict. Not persisted.
	Cause error `json:"-"`
}

// Reason returns the first reason, the one that decided the verdict.
func (v PreCheckVerdict) Reason() string {
	if len(v.Reasons) == 0 {
		return ""
	}
	return v.Reasons[0]
}

package probe

import (
	"strconv"
	"strings"

	"github.com/newtron-network/portctl/pkg/model"
	"github.com/newtron-network/portctl/pkg/util"
)

// defaultTrunkVLANs is what NX-OS allows on a trunk with no allowed list.
const defaultTrunkVLANs = "1-4094"

// RunningConfig is the parsed form of "show running-config interface".
type RunningConfig struct {
	Lines       []string
	Description string
	Mode        model.Mode
	VLANs       string
	VNI         int
	VRF         string
	Shutdown    bool
}

// ParseRunningConfig extracts the interface block and the switchport
// settings the pipeline compares against. Comment banners, the version line
// and blank lines are dropped.
func ParseRunningConfig(out string) RunningConfig {
	var cfg RunningConfig
	var (
		switchport  bool
		accessVLAN  string
		trunkVLANs  []int
		trunkListed bool
		inBlock     bool
	)

	for _, raw := range strings.Split(out, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "!") {
			continue
		}
		if strings.HasPrefix(line, "interface ") {
			inBlock = true
		}
		if !inBlock {
			continue
		}
		cfg.Lines = append(cfg.Lines, line)

		fields := strings.Fields(trimmed)
		switch {
		case fields[0] == "description":
			cfg.Description = strings.TrimSpace(strings.TrimPrefix(trimmed, "description"))
		case trimmed == "switchport":
			switchport = true
		case strings.HasPrefix(trimmed, "switchport mode "):
			switchport = true
			cfg.Mode = model.Mode(fields[2])
		case strings.HasPrefix(trimmed, "switchport access vlan "):
			switchport = true
			accessVLAN = fields[3]
		case strings.HasPrefix(trimmed, "switchport trunk allowed vlan add "):
			trunkListed = true
			if vlans, err := util.ParseRange(fields[5], util.MinVLANID, util.MaxVLANID); err == nil {
				trunkVLANs = append(trunkVLANs, vlans...)
			}
		case strings.HasPrefix(trimmed, "switchport trunk allowed vlan "):
			trunkListed = true
			if vlans, err := util.ParseRange(fields[4], util.MinVLANID, util.MaxVLANID); err == nil {
				trunkVLANs = vlans
			}
		case fields[0] == "vni" && len(fields) == 2:
			cfg.VNI, _ = strconv.Atoi(fields[1])
		case strings.HasPrefix(trimmed, "vrf member "):
			cfg.VRF = fields[2]
		case trimmed == "shutdown":
			cfg.Shutdown = true
		case trimmed == "no shutdown":
			cfg.Shutdown = false
		}
	}

	if switchport && cfg.Mode == "" {
		cfg.Mode = model.ModeAccess
	}
	switch cfg.Mode {
	case model.ModeAccess:
		if accessVLAN == "" {
			accessVLAN = "1"
		}
		cfg.VLANs = accessVLAN
	case model.ModeTrunk:
		if trunkListed {
			cfg.VLANs = util.FormatRange(trunkVLANs)
		} else {
			cfg.VLANs = defaultTrunkVLANs
		}
	}

	return cfg
}

// WithReportedMode fills in mode and VLANs for a block that states neither,
// from the port mode "show interface" reports. NX-OS hides
// "switchport mode access" and "switchport access vlan 1" where switchport
// is the system default, leaving only the interface header.
func (c RunningConfig) WithReportedMode(mode model.Mode) RunningConfig {
	if c.Mode != "" {
		return c
	}
	switch mode {
	case model.ModeAccess:
		c.Mode, c.VLANs = mode, "1"
	case model.ModeTrunk:
		c.Mode, c.VLANs = mode, defaultTrunkVLANs
	}
	return c
}

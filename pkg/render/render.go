// Package render turns a validated change request into the NX-OS
// configuration block pushed to the device.
package render

import (
	"fmt"
	"strings"

	"github.com/newtron-network/portctl/pkg/model"
)

// TemplateVersion identifies the line layout produced by Render. Bump it
// when the output for an unchanged request changes.
const TemplateVersion = "nxos-v1"

// Renderer produces configuration artifacts. It holds no state; Render is
// deterministic and never touches a device.
type Renderer struct{}

// New returns a renderer.
func New() *Renderer {
	return &Renderer{}
}

// Render validates req and builds its configuration block. Lines appear in
// a fixed order:
//
//	interface <name>
//	  description <text>
//	  switchport
//	  switchport mode access|trunk
//	  switchport access vlan <id> | switchport trunk allowed vlan <list>
//	  vxlan / vni <id>
//	  vrf member <name>
//	  no shutdown
func (r *Renderer) Render(req model.ChangeRequest) (model.ConfigArtifact, error) {
	if err := req.Validate(); err != nil {
		return model.ConfigArtifact{}, err
	}

	var lines []string
	lines = append(lines, "interface "+req.Interface)
	if desc := strings.TrimSpace(req.Description); desc != "" {
		lines = append(lines, "  description "+desc)
	}
	lines = append(lines,
		"  switchport",
		fmt.Sprintf("  switchport mode %s", req.Mode))

	switch req.Mode {
	case model.ModeAccess:
		lines = append(lines, fmt.Sprintf("  switchport access vlan %d", req.VLAN))
	case model.ModeTrunk:
		lines = append(lines, "  switchport trunk allowed vlan "+req.VLANAssignment())
	}

	if req.VNI != 0 {
		lines = append(lines, "  vxlan", fmt.Sprintf("    vni %d", req.VNI))
	}
	if req.VRF != "" {
		lines = append(lines, "  vrf member "+req.VRF)
	}
	lines = append(lines, "  no shutdown")

	text := strings.Join(lines, "\n")
	return model.ConfigArtifact{
		Text:            text,
		Hash:            model.ContentHash(text),
		TemplateVersion: TemplateVersion,
		Request:         req,
	}, nil
}

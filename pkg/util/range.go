package util

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// VLAN and VNI bounds accepted by NX-OS.
const (
	MinVLANID = 1
	MaxVLANID = 4094
	MinVNI    = 1
	MaxVNI    = 16777214
)

// ParseRange parses NX-OS list notation ("10-20,30") into sorted, distinct
// values within [floor, ceil]. Endpoints are bounds-checked before a range is
// expanded. An empty spec yields nil.
func ParseRange(spec string, floor, ceil int) ([]int, error) {
	var out []int
	for _, tok := range strings.Split(spec, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(tok, "-")
		first, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("bad value %q", tok)
		}
		last := first
		if isRange {
			if last, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, fmt.Errorf("bad range %q", tok)
			}
			if last < first {
				return nil, fmt.Errorf("range %q is descending", tok)
			}
		}
		if first < floor || last > ceil {
			return nil, fmt.Errorf("%q out of range (%d-%d)", tok, floor, ceil)
		}
		for v := first; v <= last; v++ {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// FormatRange is the inverse of ParseRange: [10 11 12 30] -> "10-12,30".
// Input order and duplicates do not matter.
func FormatRange(values []int) string {
	if len(values) == 0 {
		return ""
	}
	vals := slices.Compact(slices.Sorted(slices.Values(values)))

	var sb strings.Builder
	for i := 0; i < len(vals); {
		j := i
		for j+1 < len(vals) && vals[j+1] == vals[j]+1 {
			j++
		}
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(vals[i]))
		if j > i {
			sb.WriteByte('-')
			sb.WriteString(strconv.Itoa(vals[j]))
		}
		i = j + 1
	}
	return sb.String()
}

// ParseVLANList parses a trunk allowed-VLAN list. The list must name at
// least one VLAN and every VLAN must be in range.
func ParseVLANList(spec string) ([]int, error) {
	vlans, err := ParseRange(spec, MinVLANID, MaxVLANID)
	if err != nil {
		return nil, err
	}
	if len(vlans) == 0 {
		return nil, fmt.Errorf("empty VLAN list")
	}
	return vlans, nil
}

// ValidateVLANID checks a VLAN ID against the NX-OS range
func ValidateVLANID(id int) error {
	if id < MinVLANID || id > MaxVLANID {
		return fmt.Errorf("VLAN ID %d out of range (%d-%d)", id, MinVLANID, MaxVLANID)
	}
	return nil
}

// ValidateVNI checks a VXLAN network identifier
func ValidateVNI(vni int) error {
	if vni < MinVNI || vni > MaxVNI {
		return fmt.Errorf("VNI %d out of range (%d-%d)", vni, MinVNI, MaxVNI)
	}
	return nil
}

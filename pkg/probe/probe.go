// Package probe queries a device for the live state of one interface:
// administrative/operational status, learned MAC addresses and the
// interface's running configuration.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/itchyny/gojq"

	"github.com/newtron-network/portctl/pkg/device"
	"github.com/newtron-network/portctl/pkg/model"
	"github.com/newtron-network/portctl/pkg/util"
)

// DefaultTimeout bounds one probe, session setup included.
const DefaultTimeout = 5 * time.Second

// Show commands issued per probe.
const (
	cmdInterface     = "show interface %s | json"
	cmdMACTable      = "show mac address-table interface %s | json"
	cmdRunningConfig = "show running-config interface %s"
)

// DeviceResolver maps device names to DeviceRefs.
type DeviceResolver interface {
	Device(name string) (model.DeviceRef, error)
}

// Prober is what the pre-check engine and orchestrator need from a probe.
type Prober interface {
	Probe(ctx context.Context, iface model.InterfaceRef) (model.DeviceSnapshot, error)
}

// Probe opens a scoped session per call. It holds no connection state and
// never retries.
type Probe struct {
	devices DeviceResolver
	opener  device.Opener
	timeout time.Duration
	now     func() time.Time
}

// New creates a probe with DefaultTimeout.
func New(devices DeviceResolver, opener device.Opener) *Probe {
	return &Probe{
		devices: devices,
		opener:  opener,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
}

// WithTimeout overrides the per-probe timeout.
func (p *Probe) WithTimeout(d time.Duration) *Probe {
	if d > 0 {
		p.timeout = d
	}
	return p
}

// Probe returns the current state of iface. It fails with
// ErrUnreachableDevice when no session can be established or the session
// fails mid-probe (including timeout), and with ErrInterfaceNotFound when
// the device reports no such interface.
func (p *Probe) Probe(ctx context.Context, iface model.InterfaceRef) (model.DeviceSnapshot, error) {
	snap := model.DeviceSnapshot{Interface: iface}

	dev, err := p.devices.Device(iface.Device)
	if err != nil {
		return snap, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = device.WithSession(ctx, p.opener, dev, func(sess device.Session) error {
		return p.collect(ctx, sess, iface.Name, &snap)
	})
	snap.ObservedAt = p.now().UTC()
	if err != nil {
		return snap, err
	}

	util.WithInterface(iface.Device, iface.Name).Debugf("probe: admin=%s oper=%s macs=%d mode=%s vlans=%s",
		snap.AdminStatus, snap.OperStatus, len(snap.MACAddresses), snap.Mode, snap.VLANs)
	return snap, nil
}

func (p *Probe) collect(ctx context.Context, sess device.Session, name string, snap *model.DeviceSnapshot) error {
	out, err := sess.Query(ctx, fmt.Sprintf(cmdInterface, name))
	if err != nil {
		return classify(err, name)
	}
	row, err := interfaceRow(out)
	if err != nil {
		return fmt.Errorf("%w: parsing interface status: %v", util.ErrUnreachableDevice, err)
	}
	if row == nil {
		return fmt.Errorf("%w: %s", util.ErrInterfaceNotFound, name)
	}
	snap.Exists = true
	snap.AdminStatus = stringField(row, "admin_state")
	snap.OperStatus = stringField(row, "state")

	out, err = sess.Query(ctx, fmt.Sprintf(cmdMACTable, name))
	if err != nil {
		return classify(err, name)
	}
	if snap.MACAddresses, err = macAddresses(out); err != nil {
		return fmt.Errorf("%w: parsing MAC table: %v", util.ErrUnreachableDevice, err)
	}

	out, err = sess.Query(ctx, fmt.Sprintf(cmdRunningConfig, name))
	if err != nil {
		return classify(err, name)
	}
	cfg := ParseRunningConfig(out).WithReportedMode(model.Mode(stringField(row, "eth_mode")))
	snap.ConfigLines = cfg.Lines
	snap.Description = cfg.Description
	snap.Mode = cfg.Mode
	snap.VLANs = cfg.VLANs
	snap.VNI = cfg.VNI
	snap.VRF = cfg.VRF
	snap.Shutdown = cfg.Shutdown
	return nil
}

// classify maps session errors onto the probe's failure taxonomy.
func classify(err error, name string) error {
	switch {
	case errors.Is(err, device.ErrCommandRejected):
		return fmt.Errorf("%w: %s: %v", util.ErrInterfaceNotFound, name, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: probe timed out", util.ErrUnreachableDevice)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %v", util.ErrUnreachableDevice, err)
	}
}

var (
	interfaceRowQuery = mustCompile(`.TABLE_interface.ROW_interface | if type == "array" then .[0] else . end`)
	macAddressQuery   = mustCompile(`[.TABLE_mac_address.ROW_mac_address | if type == "array" then .[] else . end | .disp_mac_addr? | select(. != null)]`)
)

func mustCompile(src string) *gojq.Code {
	query, err := gojq.Parse(src)
	if err != nil {
		panic(fmt.Sprintf("probe: parsing query %q: %v", src, err))
	}
	code, err := gojq.Compile(query)
	if err != nil {
		panic(fmt.Sprintf("probe: compiling query %q: %v", src, err))
	}
	return code
}

// runJSON decodes NX-OS "| json" output and returns the first result of code.
// Empty output (NX-OS prints nothing for empty tables) yields nil.
func runJSON(code *gojq.Code, out string) (any, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}
	var input any
	if err := json.Unmarshal([]byte(out), &input); err != nil {
		return nil, err
	}
	iter := code.Run(input)
	v, ok := iter.Next()
	if !ok {
		return nil, nil
	}
	if err, ok := v.(error); ok {
		return nil, err
	}
	return v, nil
}

func interfaceRow(out string) (map[string]any, error) {
	v, err := runJSON(interfaceRowQuery, out)
	if err != nil || v == nil {
		return nil, err
	}
	row, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected ROW_interface type %T", v)
	}
	return row, nil
}

// macAddresses returns the learned MACs in canonical colon form, sorted
// and de-duplicated.
func macAddresses(out string) ([]string, error) {
	v, err := runJSON(macAddressQuery, out)
	if err != nil || v == nil {
		return nil, err
	}
	list, _ := v.([]any)

	seen := make(map[string]bool, len(list))
	var macs []string
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			continue
		}
		mac := strings.ToLower(strings.TrimSpace(s))
		if hw, err := net.ParseMAC(mac); err == nil {
			mac = hw.String()
		}
		if !seen[mac] {
			seen[mac] = true
			macs = append(macs, mac)
		}
	}
	sort.Strings(macs)
	return macs, nil
}

func stringField(row map[string]any, key string) string {
	s, _ := row[key].(string)
	return s
}

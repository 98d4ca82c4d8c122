// Package model defines the domain types shared by the change pipeline.
package model

import "fmt"

// Platform kinds understood by the renderer and probe.
const (
	PlatformNXOS = "nxos"
)

// DeviceRef identifies a managed device. Values are produced by the
// inventory and never modified afterwards.
type DeviceRef struct {
	Name     string `json:"name" yaml:"name"`
	Address  string `json:"address" yaml:"address"`
	Platform string `json:"platform" yaml:"platform"`
}

func (d DeviceRef) String() string {
	return d.Name
}

// InterfaceRef identifies a port on a device.
type InterfaceRef struct {
	Device string `json:"device" yaml:"device"`
	Name   string `json:"name" yaml:"name"`
}

// Key returns the lock-table and history-stream key for the interface.
func (i InterfaceRef) Key() string {
	return i.Device + "|" + i.Name
}

func (i InterfaceRef) String() string {
	return fmt.Sprintf("%s %s", i.Device, i.Name)
}

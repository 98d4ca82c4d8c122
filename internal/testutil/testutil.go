package testutil

import (
	"fmt"

	"github.com/newtron-network/portctl/pkg/model"
	"github.com/newtron-network/portctl/pkg/util"
)

// StaticDevices resolves device names to fixed DeviceRefs.
type StaticDevices map[string]model.DeviceRef

// Device implements the orchestrator's and probe's device resolver.
func (s StaticDevices) Device(name string) (model.DeviceRef, error) {
	ref, ok := s[name]
	if !ok {
		return model.DeviceRef{}, fmt.Errorf("device %q: %w", name, util.ErrNotFound)
	}
	return ref, nil
}

// Devices returns a resolver for the named devices with documentation-range
// addresses.
func Devices(names ...string) StaticDevices {
	s := make(StaticDevices, len(names))
	for i, name := range names {
		s[name] = model.DeviceRef{
			Name:     name,
			Address:  fmt.Sprintf("192.0.2.%d", 11+i),
			Platform: model.PlatformNXOS,
		}
	}
	return s
}

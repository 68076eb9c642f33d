package topology

import (
	"context"
	"fmt"
)

// FakeSource is a Source that returns a predefined set of devices for testing.
// Interfaces are taken from the Interfaces field of each device.
type FakeSource struct {
	Devices []Device
	// DevicesErr is returned by ListDevices if not nil
	DevicesErr error
	// InterfacesErr is returned by ListInterfaces for the device ids in the map
	InterfacesErr map[int]error
}

// NewFakeSource returns a FakeSource with the given devices
func NewFakeSource(devices ...Device) *FakeSource {
	return &FakeSource{Devices: devices}
}

// ListDevices implements Source's ListDevices method
func (f *FakeSource) ListDevices(_ context.Context, _ string) ([]Device, error) {
	if f.DevicesErr != nil {
		return nil, f.DevicesErr
	}

	devices := make([]Device, 0, len(f.Devices))
	for _, d := range f.Devices {
		devices = append(devices, Device{ID: d.ID, Name: d.Name})
	}

	return devices, nil
}

// ListInterfaces implements Source's ListInterfaces method
func (f *FakeSource) ListInterfaces(_ context.Context, _ string, deviceID int) ([]Interface, error) {
	if err := f.InterfacesErr[deviceID]; err != nil {
		return nil, err
	}

	for _, d := range f.Devices {
		if d.ID == deviceID {
			return append([]Interface{}, d.Interfaces...), nil
		}
	}

	return nil, fmt.Errorf("device %d does not exist", deviceID)
}

// NewFakeSnapshot builds a snapshot from the given devices. It panics on error and is
// intended for tests only.
func NewFakeSnapshot(lab string, devices ...Device) *Snapshot {
	snapshot, err := Build(context.Background(), NewFakeSource(devices...), lab)
	if err != nil {
		panic(err)
	}

	return snapshot
}

// Package resolver maps human friendly device and interface references to the
// platform's numeric addressing
package resolver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/grafana/eve-link-manager/pkg/topology"
)

var (
	// ErrDeviceNotFound is returned when the referenced device does not exist in the snapshot
	ErrDeviceNotFound = errors.New("device not found")
	// ErrInterfaceNotFound is returned when the referenced interface does not exist in the device
	ErrInterfaceNotFound = errors.New("interface not found")
	// ErrAmbiguousName is returned when a name matches more than one device or interface
	ErrAmbiguousName = errors.New("ambiguous name")
	// ErrInvalidReference is returned when a reference cannot be parsed
	ErrInvalidReference = errors.New("invalid reference")
)

// Handle identifies an interface endpoint in the platform's addressing scheme
type Handle struct {
	DeviceID      int
	DeviceName    string
	InterfaceID   int
	InterfaceName string
	NetworkID     int
}

// String returns a human readable description of the handle
func (h Handle) String() string {
	if h.DeviceName == "" && h.InterfaceName == "" {
		return fmt.Sprintf("device %d interface %d", h.DeviceID, h.InterfaceID)
	}

	return fmt.Sprintf("%s %s (device %d interface %d)", h.DeviceName, h.InterfaceName, h.DeviceID, h.InterfaceID)
}

func newHandle(device topology.Device, iface topology.Interface) Handle {
	return Handle{
		DeviceID:      device.ID,
		DeviceName:    device.Name,
		InterfaceID:   iface.ID,
		InterfaceName: iface.Name,
		NetworkID:     iface.NetworkID,
	}
}

// Resolve returns the handle for the interface referenced by the given device and interface
// tokens. If both tokens are integers they are taken as device and interface ids. Otherwise
// they are taken as names, first looking up the device and then the interface in that device.
func Resolve(snapshot *topology.Snapshot, device, iface string) (Handle, error) {
	device = strings.TrimSpace(device)
	iface = strings.TrimSpace(iface)
	if device == "" || iface == "" {
		return Handle{}, fmt.Errorf("%w: device and interface must not be empty", ErrInvalidReference)
	}

	deviceID, devErr := strconv.Atoi(device)
	ifaceID, ifErr := strconv.Atoi(iface)
	if devErr == nil && ifErr == nil {
		return ResolveIDs(snapshot, deviceID, ifaceID)
	}

	return ResolveNames(snapshot, device, iface)
}

// ResolveIDs validates the given device and interface ids exist in the snapshot
func ResolveIDs(snapshot *topology.Snapshot, deviceID, ifaceID int) (Handle, error) {
	device, found := snapshot.FindDeviceByID(deviceID)
	if !found {
		return Handle{}, fmt.Errorf("%w: id %d", ErrDeviceNotFound, deviceID)
	}

	iface, found := snapshot.FindInterfaceByID(device, ifaceID)
	if !found {
		return Handle{}, fmt.Errorf("%w: id %d in device %q (%d)", ErrInterfaceNotFound, ifaceID, device.Name, device.ID)
	}

	return newHandle(device, iface), nil
}

// ResolveNames looks up the device and interface by name. Names must be unique.
func ResolveNames(snapshot *topology.Snapshot, deviceName, ifaceName string) (Handle, error) {
	devices := snapshot.DevicesNamed(deviceName)
	switch len(devices) {
	case 0:
		return Handle{}, fmt.Errorf("%w: %q", ErrDeviceNotFound, deviceName)
	case 1:
	default:
		return Handle{}, fmt.Errorf("%w: %d devices named %q", ErrAmbiguousName, len(devices), deviceName)
	}
	device := devices[0]

	ifaces := snapshot.InterfacesNamed(device, ifaceName)
	switch len(ifaces) {
	case 0:
		return Handle{}, fmt.Errorf("%w: %q in device %q (%d)", ErrInterfaceNotFound, ifaceName, device.Name, device.ID)
	case 1:
	default:
		return Handle{}, fmt.Errorf("%w: %d interfaces named %q in device %q", ErrAmbiguousName, len(ifaces), ifaceName, device.Name)
	}

	return newHandle(device, ifaces[0]), nil
}

// ResolveRef resolves a reference in the form "device,interface"
func ResolveRef(snapshot *topology.Snapshot, ref string) (Handle, error) {
	device, iface, found := strings.Cut(ref, ",")
	if !found || strings.Contains(iface, ",") {
		return Handle{}, fmt.Errorf("%w: %q expected device,interface", ErrInvalidReference, ref)
	}

	return Resolve(snapshot, device, iface)
}

// IsResolutionError returns true if the error was caused by a reference that could not be resolved
func IsResolutionError(err error) bool {
	return errors.Is(err, ErrDeviceNotFound) ||
		errors.Is(err, ErrInterfaceNotFound) ||
		errors.Is(err, ErrAmbiguousName) ||
		errors.Is(err, ErrInvalidReference)
}

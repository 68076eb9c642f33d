// Package topology builds a read-only snapshot of the devices and interfaces of a lab
package topology

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

var (
	// ErrLabNotFound is returned when the platform reports the lab does not exist
	ErrLabNotFound = errors.New("lab not found")
	// ErrTransport is returned for connectivity or authentication failures with the platform
	ErrTransport = errors.New("platform transport error")
)

// Device is a node of the lab
type Device struct {
	ID         int
	Name       string
	Interfaces []Interface
}

// Interface is a network port of a Device
type Interface struct {
	ID   int
	Name string
	// Type is the platform's interface family (e.g. ethernet, serial)
	Type string
	// NetworkID identifies the platform network the interface is connected to. 0 if unconnected.
	NetworkID int
	DeviceID  int
}

// Source lists the devices and interfaces of a lab
type Source interface {
	// ListDevices returns the devices in the lab. Interfaces are not populated.
	ListDevices(ctx context.Context, lab string) ([]Device, error)
	// ListInterfaces returns the interfaces of the given device
	ListInterfaces(ctx context.Context, lab string, deviceID int) ([]Interface, error)
}

// Snapshot is an immutable view of the lab topology at the time it was built
type Snapshot struct {
	lab     string
	devices []Device
	byID    map[int]int
	byName  map[string][]int
}

// Link groups the interfaces attached to the same platform network
type Link struct {
	NetworkID  int
	Interfaces []Interface
}

// Build fetches the devices and interfaces of the lab and returns a Snapshot.
// Any failure listing the lab aborts the construction.
func Build(ctx context.Context, source Source, lab string) (*Snapshot, error) {
	devices, err := source.ListDevices(ctx, lab)
	if err != nil {
		return nil, fmt.Errorf("listing devices of lab %q: %w", lab, classify(err))
	}

	snapshot := &Snapshot{
		lab:    lab,
		byID:   make(map[int]int, len(devices)),
		byName: make(map[string][]int, len(devices)),
	}

	for _, d := range devices {
		if _, found := snapshot.byID[d.ID]; found {
			return nil, fmt.Errorf("%w: duplicated device id %d in lab %q", ErrTransport, d.ID, lab)
		}

		ifaces, err := source.ListInterfaces(ctx, lab, d.ID)
		if err != nil {
			return nil, fmt.Errorf("listing interfaces of device %q (%d): %w", d.Name, d.ID, classify(err))
		}

		device := Device{ID: d.ID, Name: d.Name, Interfaces: make([]Interface, 0, len(ifaces))}
		for _, i := range ifaces {
			i.DeviceID = d.ID
			device.Interfaces = append(device.Interfaces, i)
		}
		sort.SliceStable(device.Interfaces, func(a, b int) bool {
			return device.Interfaces[a].ID < device.Interfaces[b].ID
		})

		snapshot.byID[d.ID] = len(snapshot.devices)
		snapshot.byName[d.Name] = append(snapshot.byName[d.Name], len(snapshot.devices))
		snapshot.devices = append(snapshot.devices, device)
	}

	return snapshot, nil
}

// classify ensures every listing failure is reported as one of the snapshot errors
func classify(err error) error {
	if errors.Is(err, ErrLabNotFound) || errors.Is(err, ErrTransport) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrTransport, err)
}

// Lab returns the lab the snapshot was built from
func (s *Snapshot) Lab() string {
	return s.lab
}

// Devices returns the devices ordered by id
func (s *Snapshot) Devices() []Device {
	devices := append([]Device{}, s.devices...)
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].ID < devices[j].ID
	})

	return devices
}

// FindDeviceByID returns the device with the given id
func (s *Snapshot) FindDeviceByID(id int) (Device, bool) {
	idx, found := s.byID[id]
	if !found {
		return Device{}, false
	}

	return s.devices[idx], true
}

// FindDeviceByName returns the first device with the given name
func (s *Snapshot) FindDeviceByName(name string) (Device, bool) {
	matches := s.byName[name]
	if len(matches) == 0 {
		return Device{}, false
	}

	return s.devices[matches[0]], true
}

// DevicesNamed returns all the devices with the given name
func (s *Snapshot) DevicesNamed(name string) []Device {
	devices := make([]Device, 0, len(s.byName[name]))
	for _, idx := range s.byName[name] {
		devices = append(devices, s.devices[idx])
	}

	return devices
}

// FindInterface returns the interface of the device that matches the given name
// or, if it is numeric and no interface has that name, the given id.
func (s *Snapshot) FindInterface(device Device, nameOrID string) (Interface, bool) {
	for _, i := range device.Interfaces {
		if i.Name == nameOrID {
			return i, true
		}
	}

	id, err := strconv.Atoi(nameOrID)
	if err != nil {
		return Interface{}, false
	}

	return s.FindInterfaceByID(device, id)
}

// FindInterfaceByID returns the interface of the device with the given id
func (s *Snapshot) FindInterfaceByID(device Device, id int) (Interface, bool) {
	for _, i := range device.Interfaces {
		if i.ID == id {
			return i, true
		}
	}

	return Interface{}, false
}

// InterfacesNamed returns all the interfaces of the device with the given name
func (s *Snapshot) InterfacesNamed(device Device, name string) []Interface {
	var ifaces []Interface
	for _, i := range device.Interfaces {
		if i.Name == name {
			ifaces = append(ifaces, i)
		}
	}

	return ifaces
}

// Links returns the interfaces grouped by the network they are connected to,
// ordered by network id. Unconnected interfaces are not included.
func (s *Snapshot) Links() []Link {
	networks := map[int][]Interface{}
	for _, d := range s.Devices() {
		for _, i := range d.Interfaces {
			if i.NetworkID == 0 {
				continue
			}
			networks[i.NetworkID] = append(networks[i.NetworkID], i)
		}
	}

	links := make([]Link, 0, len(networks))
	for id, ifaces := range networks {
		links = append(links, Link{NetworkID: id, Interfaces: ifaces})
	}
	sort.Slice(links, func(i, j int) bool {
		return links[i].NetworkID < links[j].NetworkID
	})

	return links
}

// InterfaceCount returns the total number of interfaces in the snapshot
func (s *Snapshot) InterfaceCount() int {
	count := 0
	for _, d := range s.devices {
		count += len(d.Interfaces)
	}

	return count
}

// Package hostlink suspends and resumes interfaces of the local host by setting them down and up
package hostlink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"

	"github.com/grafana/eve-link-manager/pkg/linkops"
	"github.com/grafana/eve-link-manager/pkg/resolver"
	"github.com/vishvananda/netlink"
)

// HostDevice is the device name used in the handles of host interfaces
const HostDevice = "host"

// ErrLinkNotFound is returned when the host has no interface with the given name
var ErrLinkNotFound = errors.New("host interface not found")

// LinkAPI is the subset of the netlink API used for managing host interfaces
type LinkAPI interface {
	LinkByName(name string) (netlink.Link, error)
	LinkList() ([]netlink.Link, error)
	LinkSetDown(link netlink.Link) error
	LinkSetUp(link netlink.Link) error
}

type systemLinks struct{}

func (systemLinks) LinkByName(name string) (netlink.Link, error) {
	return netlink.LinkByName(name)
}

func (systemLinks) LinkList() ([]netlink.Link, error) {
	return netlink.LinkList()
}

func (systemLinks) LinkSetDown(link netlink.Link) error {
	return netlink.LinkSetDown(link)
}

func (systemLinks) LinkSetUp(link netlink.Link) error {
	return netlink.LinkSetUp(link)
}

// DefaultLinkAPI returns the netlink API of the running host
func DefaultLinkAPI() LinkAPI {
	return systemLinks{}
}

// HostInterface describes an interface of the host
type HostInterface struct {
	Name  string `json:"name" yaml:"name"`
	Index int    `json:"index" yaml:"index"`
	MAC   string `json:"mac" yaml:"mac"`
	Up    bool   `json:"up" yaml:"up"`
}

// Manager changes the state of host interfaces. It implements linkops.Switcher.
type Manager struct {
	links LinkAPI
}

// NewManager returns a Manager that uses the given netlink API
func NewManager(links LinkAPI) *Manager {
	return &Manager{links: links}
}

// Handle returns the handle that references the host interface with the given name
func (m *Manager) Handle(name string) (resolver.Handle, error) {
	link, err := m.lookup(name)
	if err != nil {
		return resolver.Handle{}, err
	}

	return resolver.Handle{
		DeviceName:    HostDevice,
		InterfaceID:   link.Attrs().Index,
		InterfaceName: link.Attrs().Name,
	}, nil
}

// Suspend sets the interface down
func (m *Manager) Suspend(_ context.Context, target resolver.Handle) error {
	link, err := m.lookup(target.InterfaceName)
	if err != nil {
		return err
	}

	if err := m.links.LinkSetDown(link); err != nil {
		return fmt.Errorf("setting %s down: %w", target.InterfaceName, err)
	}

	return nil
}

// Resume sets the interface up
func (m *Manager) Resume(_ context.Context, target resolver.Handle) error {
	link, err := m.lookup(target.InterfaceName)
	if err != nil {
		return err
	}

	if err := m.links.LinkSetUp(link); err != nil {
		return fmt.Errorf("setting %s up: %w", target.InterfaceName, err)
	}

	return nil
}

// Describe returns the equivalent ip command of the operation
func (m *Manager) Describe(kind linkops.Kind, target resolver.Handle) string {
	state := "down"
	if kind == linkops.Resume {
		state = "up"
	}

	return fmt.Sprintf("ip link set dev %s %s", target.InterfaceName, state)
}

// List returns the interfaces of the host sorted by index
func (m *Manager) List() ([]HostInterface, error) {
	links, err := m.links.LinkList()
	if err != nil {
		return nil, fmt.Errorf("listing host interfaces: %w", err)
	}

	ifaces := make([]HostInterface, 0, len(links))
	for _, l := range links {
		attrs := l.Attrs()
		mac := ""
		if attrs.HardwareAddr != nil {
			mac = attrs.HardwareAddr.String()
		}
		ifaces = append(ifaces, HostInterface{
			Name:  attrs.Name,
			Index: attrs.Index,
			MAC:   mac,
			Up:    attrs.Flags&net.FlagUp != 0,
		})
	}

	sort.Slice(ifaces, func(i, j int) bool {
		return ifaces[i].Index < ifaces[j].Index
	})

	return ifaces, nil
}

func (m *Manager) lookup(name string) (netlink.Link, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrLinkNotFound)
	}

	link, err := m.links.LinkByName(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLinkNotFound, name, err)
	}

	return link, nil
}

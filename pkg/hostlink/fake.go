package hostlink

import (
	"fmt"
	"net"
	"sync"

	"github.com/vishvananda/netlink"
)

// FakeLinks is a LinkAPI that keeps the state of the links in memory, for testing
type FakeLinks struct {
	mtx     sync.Mutex
	links   []netlink.Link
	history []string
	// SetErr is returned by LinkSetUp and LinkSetDown if not nil
	SetErr error
}

// NewFakeLinks returns a FakeLinks with the given links
func NewFakeLinks(links ...netlink.Link) *FakeLinks {
	return &FakeLinks{links: links}
}

// NewFakeLink returns a dummy link with the given attributes
func NewFakeLink(name string, index int, mac string, up bool) netlink.Link {
	attrs := netlink.NewLinkAttrs()
	attrs.Name = name
	attrs.Index = index
	if mac != "" {
		attrs.HardwareAddr, _ = net.ParseMAC(mac)
	}
	if up {
		attrs.Flags = net.FlagUp
	}

	return &netlink.Dummy{LinkAttrs: attrs}
}

// LinkByName implements LinkAPI's LinkByName method
func (f *FakeLinks) LinkByName(name string) (netlink.Link, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	for _, l := range f.links {
		if l.Attrs().Name == name {
			return l, nil
		}
	}

	return nil, fmt.Errorf("link %s not found", name)
}

// LinkList implements LinkAPI's LinkList method
func (f *FakeLinks) LinkList() ([]netlink.Link, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	return append([]netlink.Link{}, f.links...), nil
}

// LinkSetDown implements LinkAPI's LinkSetDown method
func (f *FakeLinks) LinkSetDown(link netlink.Link) error {
	return f.set(link, false)
}

// LinkSetUp implements LinkAPI's LinkSetUp method
func (f *FakeLinks) LinkSetUp(link netlink.Link) error {
	return f.set(link, true)
}

func (f *FakeLinks) set(link netlink.Link, up bool) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	state := "down"
	if up {
		state = "up"
	}
	f.history = append(f.history, link.Attrs().Name+" "+state)

	if f.SetErr != nil {
		return f.SetErr
	}

	if up {
		link.Attrs().Flags |= net.FlagUp
	} else {
		link.Attrs().Flags &^= net.FlagUp
	}

	return nil
}

// History returns the changes applied to the links, as "<name> up|down"
func (f *FakeLinks) History() []string {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	return append([]string{}, f.history...)
}

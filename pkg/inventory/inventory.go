// Package inventory prints the devices, interfaces and links of a lab
package inventory

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/grafana/eve-link-manager/pkg/hostlink"
	"github.com/grafana/eve-link-manager/pkg/topology"
	"gopkg.in/yaml.v3"
)

// Format of the inventory output
type Format string

// Supported formats
const (
	Text Format = "text"
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat returns the format with the given name
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case Text, JSON, YAML:
		return f, nil
	case "":
		return Text, nil
	default:
		return "", fmt.Errorf("invalid output format %q: must be one of text, json or yaml", name)
	}
}

// Interface is an interface of a node in the inventory
type Interface struct {
	ID      int    `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	Network int    `json:"network,omitempty" yaml:"network,omitempty"`
}

// Node is a device of the lab
type Node struct {
	ID         int         `json:"id" yaml:"id"`
	Name       string      `json:"name" yaml:"name"`
	Interfaces []Interface `json:"interfaces" yaml:"interfaces"`
}

// Endpoint is one of the interfaces attached to a network
type Endpoint struct {
	Node      string `json:"node" yaml:"node"`
	NodeID    int    `json:"node_id" yaml:"node_id"`
	Interface string `json:"interface" yaml:"interface"`
	ID        int    `json:"interface_id" yaml:"interface_id"`
}

// Link is a network of the lab with the interfaces connected to it
type Link struct {
	Network   int        `json:"network" yaml:"network"`
	Endpoints []Endpoint `json:"endpoints" yaml:"endpoints"`
}

// Inventory describes the lab
type Inventory struct {
	Lab            string                   `json:"lab" yaml:"lab"`
	Nodes          []Node                   `json:"nodes" yaml:"nodes"`
	Links          []Link                   `json:"links" yaml:"links"`
	HostInterfaces []hostlink.HostInterface `json:"host_interfaces,omitempty" yaml:"host_interfaces,omitempty"`
}

// New returns the inventory of the snapshot. hostIfaces can be nil.
func New(snapshot *topology.Snapshot, hostIfaces []hostlink.HostInterface) *Inventory {
	inv := &Inventory{
		Lab:            snapshot.Lab(),
		Nodes:          []Node{},
		Links:          []Link{},
		HostInterfaces: hostIfaces,
	}

	for _, d := range snapshot.Devices() {
		node := Node{ID: d.ID, Name: d.Name, Interfaces: []Interface{}}
		for _, i := range d.Interfaces {
			node.Interfaces = append(node.Interfaces, Interface{
				ID:      i.ID,
				Name:    i.Name,
				Type:    i.Type,
				Network: i.NetworkID,
			})
		}
		inv.Nodes = append(inv.Nodes, node)
	}

	for _, l := range snapshot.Links() {
		link := Link{Network: l.NetworkID}
		for _, i := range l.Interfaces {
			device, _ := snapshot.FindDeviceByID(i.DeviceID)
			link.Endpoints = append(link.Endpoints, Endpoint{
				Node:      device.Name,
				NodeID:    i.DeviceID,
				Interface: i.Name,
				ID:        i.ID,
			})
		}
		inv.Links = append(inv.Links, link)
	}

	return inv
}

// Write prints the inventory in the given format
func (inv *Inventory) Write(w io.Writer, format Format) error {
	switch format {
	case JSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(inv)
	case YAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(inv); err != nil {
			return err
		}
		return encoder.Close()
	case Text, "":
		return inv.writeText(w)
	default:
		return fmt.Errorf("invalid output format %q", format)
	}
}

func (inv *Inventory) writeText(w io.Writer) error {
	b := &strings.Builder{}

	fmt.Fprintf(b, "Lab: %s\n", inv.Lab)
	for _, n := range inv.Nodes {
		fmt.Fprintf(b, "Node: %s (id %d)\n", n.Name, n.ID)
		for _, i := range n.Interfaces {
			network := "unconnected"
			if i.Network != 0 {
				network = fmt.Sprintf("network %d", i.Network)
			}
			fmt.Fprintf(b, "  Interface: %s (id %d, %s, %s)\n", i.Name, i.ID, i.Type, network)
		}
	}

	if len(inv.Links) > 0 {
		fmt.Fprintln(b, "Links:")
		for _, l := range inv.Links {
			endpoints := make([]string, 0, len(l.Endpoints))
			for _, e := range l.Endpoints {
				endpoints = append(endpoints, fmt.Sprintf("%s,%s", e.Node, e.Interface))
			}
			fmt.Fprintf(b, "  Network %d: %s\n", l.Network, strings.Join(endpoints, " <-> "))
		}
	}

	if len(inv.HostInterfaces) > 0 {
		fmt.Fprintln(b, "Host interfaces:")
		for _, h := range inv.HostInterfaces {
			state := "down"
			if h.Up {
				state = "up"
			}
			mac := h.MAC
			if mac == "" {
				mac = "-"
			}
			fmt.Fprintf(b, "  %s (index %d, mac %s, %s)\n", h.Name, h.Index, mac, state)
		}
	}

	_, err := io.WriteString(w, b.String())

	return err
}

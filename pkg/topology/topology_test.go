package topology

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testDevices() []Device {
	return []Device{
		{
			ID:   7,
			Name: "r7",
			Interfaces: []Interface{
				{ID: 16, Name: "s1/0", Type: "serial"},
				{ID: 0, Name: "e0/0", Type: "ethernet", NetworkID: 3},
				{ID: 1, Name: "e0/1", Type: "ethernet"},
			},
		},
		{
			ID:   4,
			Name: "r4",
			Interfaces: []Interface{
				{ID: 0, Name: "e0/0", Type: "ethernet", NetworkID: 3},
				{ID: 2, Name: "e0/2", Type: "ethernet", NetworkID: 5},
			},
		},
		{
			ID:   9,
			Name: "sw1",
			Interfaces: []Interface{
				{ID: 3, Name: "Gi0/3", Type: "ethernet", NetworkID: 5},
			},
		},
	}
}

func Test_Build(t *testing.T) {
	t.Parallel()

	snapshot, err := Build(context.Background(), NewFakeSource(testDevices()...), "demo.unl")
	if err != nil {
		t.Fatalf("failed: %v", err)
	}

	if snapshot.Lab() != "demo.unl" {
		t.Errorf("expected lab %q got %q", "demo.unl", snapshot.Lab())
	}

	ids := []int{}
	for _, d := range snapshot.Devices() {
		ids = append(ids, d.ID)
	}
	if diff := cmp.Diff([]int{4, 7, 9}, ids); diff != "" {
		t.Errorf("devices not ordered by id:\n%s", diff)
	}

	r7, found := snapshot.FindDeviceByID(7)
	if !found {
		t.Fatalf("device 7 not found")
	}

	expected := []Interface{
		{ID: 0, Name: "e0/0", Type: "ethernet", NetworkID: 3, DeviceID: 7},
		{ID: 1, Name: "e0/1", Type: "ethernet", DeviceID: 7},
		{ID: 16, Name: "s1/0", Type: "serial", DeviceID: 7},
	}
	if diff := cmp.Diff(expected, r7.Interfaces); diff != "" {
		t.Errorf("interfaces do not match:\n%s", diff)
	}

	if snapshot.InterfaceCount() != 6 {
		t.Errorf("expected 6 interfaces got %d", snapshot.InterfaceCount())
	}
}

func Test_BuildErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		title    string
		source   *FakeSource
		expected error
	}{
		{
			title: "lab not found",
			source: &FakeSource{
				DevicesErr: ErrLabNotFound,
			},
			expected: ErrLabNotFound,
		},
		{
			title: "unclassified error listing devices",
			source: &FakeSource{
				DevicesErr: errors.New("connection refused"),
			},
			expected: ErrTransport,
		},
		{
			title: "error listing interfaces",
			source: &FakeSource{
				Devices:       testDevices(),
				InterfacesErr: map[int]error{4: errors.New("session expired")},
			},
			expected: ErrTransport,
		},
		{
			title: "duplicated device id",
			source: &FakeSource{
				Devices: []Device{{ID: 1, Name: "a"}, {ID: 1, Name: "b"}},
			},
			expected: ErrTransport,
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.title, func(t *testing.T) {
			t.Parallel()

			snapshot, err := Build(context.Background(), tc.source, "demo.unl")
			if !errors.Is(err, tc.expected) {
				t.Fatalf("expected %v got %v", tc.expected, err)
			}

			if snapshot != nil {
				t.Errorf("no snapshot should be returned on error")
			}
		})
	}
}

func Test_Lookups(t *testing.T) {
	t.Parallel()

	snapshot := NewFakeSnapshot("demo.unl", testDevices()...)

	testCases := []struct {
		title     string
		device    string
		iface     string
		expectDev bool
		expectIf  bool
		expectID  int
	}{
		{title: "interface by name", device: "r7", iface: "e0/1", expectDev: true, expectIf: true, expectID: 1},
		{title: "interface by id", device: "r7", iface: "16", expectDev: true, expectIf: true, expectID: 16},
		{title: "device name is case sensitive", device: "R7", iface: "e0/1"},
		{title: "interface name is case sensitive", device: "r7", iface: "E0/1", expectDev: true},
		{title: "no partial match", device: "r7", iface: "e0", expectDev: true},
		{title: "unknown interface id", device: "r4", iface: "1", expectDev: true},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.title, func(t *testing.T) {
			t.Parallel()

			device, found := snapshot.FindDeviceByName(tc.device)
			if found != tc.expectDev {
				t.Fatalf("expected device found %t got %t", tc.expectDev, found)
			}
			if !found {
				return
			}

			iface, found := snapshot.FindInterface(device, tc.iface)
			if found != tc.expectIf {
				t.Fatalf("expected interface found %t got %t", tc.expectIf, found)
			}

			if found && iface.ID != tc.expectID {
				t.Errorf("expected interface id %d got %d", tc.expectID, iface.ID)
			}
		})
	}
}

func Test_Links(t *testing.T) {
	t.Parallel()

	snapshot := NewFakeSnapshot("demo.unl", testDevices()...)

	expected := []Link{
		{
			NetworkID: 3,
			Interfaces: []Interface{
				{ID: 0, Name: "e0/0", Type: "ethernet", NetworkID: 3, DeviceID: 4},
				{ID: 0, Name: "e0/0", Type: "ethernet", NetworkID: 3, DeviceID: 7},
			},
		},
		{
			NetworkID: 5,
			Interfaces: []Interface{
				{ID: 2, Name: "e0/2", Type: "ethernet", NetworkID: 5, DeviceID: 4},
				{ID: 3, Name: "Gi0/3", Type: "ethernet", NetworkID: 5, DeviceID: 9},
			},
		},
	}

	if diff := cmp.Diff(expected, snapshot.Links()); diff != "" {
		t.Errorf("links do not match:\n%s", diff)
	}
}

func Test_DuplicatedNames(t *testing.T) {
	t.Parallel()

	snapshot := NewFakeSnapshot("demo.unl",
		Device{ID: 1, Name: "r1"},
		Device{ID: 2, Name: "r1"},
	)

	if n := len(snapshot.DevicesNamed("r1")); n != 2 {
		t.Fatalf("expected 2 devices named r1 got %d", n)
	}

	device, found := snapshot.FindDeviceByName("r1")
	if !found || device.ID != 1 {
		t.Errorf("expected first device to be returned, got %v", device)
	}
}

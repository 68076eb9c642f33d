package linkops

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/grafana/eve-link-manager/pkg/resolver"
)

// FakeSwitcher is a Switcher that records the calls it receives for testing.
// Calls fail with the error set for the target and kind, if any.
type FakeSwitcher struct {
	mtx   sync.Mutex
	calls []string
	// Failures maps "suspend|resume device,interface" to the error returned by the call
	Failures map[string]error
	// FailAfter makes every call after the given number of successful calls fail. 0 disables it.
	FailAfter int
}

// NewFakeSwitcher returns a FakeSwitcher that accepts all calls
func NewFakeSwitcher() *FakeSwitcher {
	return &FakeSwitcher{Failures: map[string]error{}}
}

// CallKey returns the key used for recording and failing calls
func CallKey(kind Kind, target resolver.Handle) string {
	return fmt.Sprintf("%s %d,%d", kind, target.DeviceID, target.InterfaceID)
}

func (f *FakeSwitcher) call(kind Kind, target resolver.Handle) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	key := CallKey(kind, target)
	if f.FailAfter > 0 && len(f.calls) >= f.FailAfter {
		f.calls = append(f.calls, key)
		return fmt.Errorf("platform unavailable")
	}

	f.calls = append(f.calls, key)

	return f.Failures[key]
}

// Suspend implements Switcher's Suspend method
func (f *FakeSwitcher) Suspend(_ context.Context, target resolver.Handle) error {
	return f.call(Suspend, target)
}

// Resume implements Switcher's Resume method
func (f *FakeSwitcher) Resume(_ context.Context, target resolver.Handle) error {
	return f.call(Resume, target)
}

// Calls returns the calls received in order
func (f *FakeSwitcher) Calls() []string {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	return append([]string{}, f.calls...)
}

// FakeWait records the waits requested without blocking
type FakeWait struct {
	mtx   sync.Mutex
	waits []time.Duration
}

// Wait implements WaitFunc
func (f *FakeWait) Wait(ctx context.Context, d time.Duration) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.waits = append(f.waits, d)

	return ctx.Err()
}

// Waits returns the waits requested in order
func (f *FakeWait) Waits() []time.Duration {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	return append([]time.Duration{}, f.waits...)
}

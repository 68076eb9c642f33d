package eveng

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/grafana/eve-link-manager/pkg/linkops"
	"github.com/grafana/eve-link-manager/pkg/resolver"
	"github.com/grafana/eve-link-manager/pkg/runtime"
)

// DefaultWrapperPath is the location of the unl_wrapper command in the EVE-NG host
const DefaultWrapperPath = "/opt/unetlab/wrappers/unl_wrapper"

// WrapperConfig defines how the unl_wrapper command is invoked
type WrapperConfig struct {
	Path string
	// Sudo runs the wrapper with sudo
	Sudo bool
	// Tenant is the EVE-NG tenant (user pod) that runs the lab
	Tenant int
}

// Wrapper suspends and resumes lab interfaces by running the unl_wrapper command.
// It implements linkops.Switcher.
type Wrapper struct {
	exec   runtime.Executor
	lab    LabPath
	config WrapperConfig
}

// NewWrapper returns a Wrapper for the interfaces of the given lab
func NewWrapper(executor runtime.Executor, lab LabPath, config WrapperConfig) Wrapper {
	if config.Path == "" {
		config.Path = DefaultWrapperPath
	}

	return Wrapper{
		exec:   executor,
		lab:    lab,
		config: config,
	}
}

// Suspend disconnects the interface from its network
func (w Wrapper) Suspend(ctx context.Context, target resolver.Handle) error {
	return w.run(ctx, linkops.Suspend, target)
}

// Resume reconnects the interface to its network
func (w Wrapper) Resume(ctx context.Context, target resolver.Handle) error {
	return w.run(ctx, linkops.Resume, target)
}

// Describe returns the command line that would be executed for the operation
func (w Wrapper) Describe(kind linkops.Kind, target resolver.Handle) string {
	return strings.Join(w.Command(kind, target), " ")
}

// Command returns the command and arguments for the operation on the target
func (w Wrapper) Command(kind linkops.Kind, target resolver.Handle) []string {
	cmd := []string{}
	if w.config.Sudo {
		cmd = append(cmd, "sudo")
	}

	return append(cmd,
		w.config.Path,
		"-a", action(kind),
		"-T", strconv.Itoa(w.config.Tenant),
		"-I", strconv.Itoa(target.InterfaceID),
		"-D", strconv.Itoa(target.DeviceID),
		"-F", w.lab.File(),
	)
}

func (w Wrapper) run(ctx context.Context, kind linkops.Kind, target resolver.Handle) error {
	cmd := w.Command(kind, target)
	out, err := w.exec.Exec(ctx, cmd[0], cmd[1:]...)
	if err != nil {
		return fmt.Errorf("running %s: %q: %w", action(kind), strings.TrimSpace(string(out)), err)
	}

	return nil
}

func action(kind linkops.Kind) string {
	switch kind {
	case linkops.Suspend:
		return "suspendlink"
	case linkops.Resume:
		return "resumelink"
	default:
		return kind.String()
	}
}

package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/grafana/eve-link-manager/pkg/hostlink"
	"github.com/grafana/eve-link-manager/pkg/linkops"
	"github.com/grafana/eve-link-manager/pkg/resolver"
	"github.com/spf13/cobra"
)

// targetFlags are the alternative ways of referencing the interfaces of an operation
type targetFlags struct {
	deviceID      int
	interfaceID   int
	device2ID     int
	interface2ID  int
	hostInterface string
}

func (t *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&t.deviceID, "device-id", 0, "EVE-NG device id")
	cmd.Flags().IntVar(&t.interfaceID, "interface-id", 0, "EVE-NG interface id")
	cmd.Flags().IntVar(&t.device2ID, "device2-id", 0, "EVE-NG device id of the other end of the link")
	cmd.Flags().IntVar(&t.interface2ID, "interface2-id", 0, "EVE-NG interface id of the other end of the link")
	cmd.Flags().StringVar(&t.hostInterface, "host-interface", "", "host interface name (does not use EVE-NG)")

	cmd.MarkFlagsRequiredTogether("device-id", "interface-id")
	cmd.MarkFlagsRequiredTogether("device2-id", "interface2-id")
	cmd.MarkFlagsMutuallyExclusive("device-id", "host-interface")
}

// refs returns the "device,interface" references given either as arguments or as id flags
func (t *targetFlags) refs(cmd *cobra.Command, args []string) ([]string, error) {
	changed := cmd.Flags().Changed
	byID := changed("device-id")

	if changed("device2-id") && !byID {
		return nil, fmt.Errorf("--device2-id requires --device-id and --interface-id")
	}

	modes := 0
	for _, set := range []bool{len(args) > 0, byID, t.hostInterface != ""} {
		if set {
			modes++
		}
	}

	if modes != 1 {
		return nil, fmt.Errorf("specify the interface either as device,interface arguments, " +
			"with --device-id and --interface-id, or with --host-interface")
	}

	if t.hostInterface != "" {
		return nil, nil
	}

	if byID {
		refs := []string{idRef(t.deviceID, t.interfaceID)}
		if changed("device2-id") {
			refs = append(refs, idRef(t.device2ID, t.interface2ID))
		}
		return refs, nil
	}

	for _, arg := range args {
		if strings.Count(arg, ",") != 1 {
			return nil, fmt.Errorf("%w: %q expected device,interface", resolver.ErrInvalidReference, arg)
		}
	}

	return args, nil
}

func idRef(device, iface int) string {
	return strconv.Itoa(device) + "," + strconv.Itoa(iface)
}

var operationDescriptions = map[linkops.Kind]string{
	linkops.Suspend: "Suspend an interface or the two ends of a link",
	linkops.Resume:  "Resume an interface or the two ends of a link",
	linkops.Flap:    "Flap (suspend then resume) an interface or the two ends of a link",
}

// buildOperationCmd builds the command for applying the operation to one or two interfaces
func buildOperationCmd(a *app, kind linkops.Kind) *cobra.Command {
	targets := &targetFlags{}
	count := 1
	delay := time.Second

	cmd := &cobra.Command{
		Use:   kind.String() + " [device,interface [device,interface]]",
		Short: operationDescriptions[kind],
		Long: operationDescriptions[kind] + ".\n" +
			"Devices and interfaces are referenced by name (r1,e0/0) or by id (3,16).",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			refs, err := targets.refs(cmd, args)
			if err != nil {
				return err
			}

			if kind == linkops.Flap && (count < 1 || delay < 0) {
				return fmt.Errorf("%w: count must be positive and delay non-negative", linkops.ErrInvalidRequest)
			}

			req := linkops.Request{Kind: kind, Count: count, Delay: delay}
			if err := a.runOperation(cmd.Context(), req, refs, targets.hostInterface); err != nil {
				return a.finish(fmt.Errorf("%s: %w", kind, err))
			}

			return a.finish(nil)
		},
	}

	targets.register(cmd)
	if kind == linkops.Flap {
		cmd.Flags().IntVarP(&count, "count", "c", 1, "number of times to flap the interface")
		cmd.Flags().DurationVarP(&delay, "delay", "d", time.Second, "time the interface is kept suspended and between flaps")
	}

	return cmd
}

// runOperation resolves the references and executes the request
func (a *app) runOperation(ctx context.Context, req linkops.Request, refs []string, hostInterface string) error {
	if hostInterface != "" {
		manager := hostlink.NewManager(a.links)
		target, err := manager.Handle(hostInterface)
		if err != nil {
			return err
		}
		req.Targets = []resolver.Handle{target}

		return a.executor(manager).Execute(ctx, req)
	}

	s, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, ref := range refs {
		target, err := resolver.ResolveRef(s.snapshot, ref)
		if err != nil {
			return err
		}
		req.Targets = append(req.Targets, target)
	}

	return a.executor(a.wrapper(s.lab)).Execute(ctx, req)
}

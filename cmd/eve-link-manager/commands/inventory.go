package commands

import (
	"github.com/grafana/eve-link-manager/pkg/hostlink"
	"github.com/grafana/eve-link-manager/pkg/inventory"
	"github.com/spf13/cobra"
)

// buildInventoryCmd builds the command for listing the devices, interfaces and links of the lab
func buildInventoryCmd(a *app) *cobra.Command {
	var output string
	var hostInterfaces bool

	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "List the devices, interfaces and links of the lab",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := inventory.ParseFormat(output)
			if err != nil {
				return err
			}

			return a.finish(a.runInventory(cmd, format, hostInterfaces))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")
	cmd.Flags().BoolVar(&hostInterfaces, "host-interfaces", false, "include the interfaces of the host")

	return cmd
}

func (a *app) runInventory(cmd *cobra.Command, format inventory.Format, hostInterfaces bool) error {
	s, err := a.connect(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	var hostIfaces []hostlink.HostInterface
	if hostInterfaces {
		hostIfaces, err = hostlink.NewManager(a.links).List()
		if err != nil {
			return err
		}
	}

	return inventory.New(s.snapshot, hostIfaces).Write(cmd.OutOrStdout(), format)
}

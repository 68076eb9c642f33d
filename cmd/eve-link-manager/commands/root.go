// Package commands implements the commands of the eve-link-manager CLI
package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/grafana/eve-link-manager/pkg/config"
	"github.com/grafana/eve-link-manager/pkg/eveng"
	"github.com/grafana/eve-link-manager/pkg/linkops"
	"github.com/grafana/eve-link-manager/pkg/runtime"
	"github.com/spf13/cobra"
)

// RootCommand maintains the state for executing the root command
type RootCommand struct {
	cmd *cobra.Command
	env runtime.Environment
}

// BuildRootCmd builds the root command with all the persistent flags and subcommands
func BuildRootCmd(env runtime.Environment, opts ...Option) *RootCommand {
	a := newApp(env, opts...)

	rootCmd := &cobra.Command{
		Use:   "eve-link-manager",
		Short: "Suspend, resume and flap links of an EVE-NG lab",
		Long: "A command for disrupting the links of the devices in an EVE-NG lab.\n" +
			"Interfaces are referenced by device and interface names or ids, or listed in a batch file.\n" +
			"The connection settings are read from the EVE_* environment variables, a .env file\n" +
			"or a configuration file, and can be overridden by flags.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if a.out != nil {
		rootCmd.SetOut(a.out)
	}
	if a.errOut != nil {
		rootCmd.SetErr(a.errOut)
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.flags.configFile, "config", "", "YAML configuration file")
	flags.StringVar(&a.flags.envFile, "env-file", "", "dotenv file (default \""+config.DefaultEnvFile+"\" if present)")
	flags.StringVar(&a.flags.host, "host", "", "EVE-NG server URL ("+config.HostVar+")")
	flags.StringVar(&a.flags.username, "username", "", "EVE-NG username ("+config.UsernameVar+")")
	flags.StringVar(&a.flags.password, "password", "", "EVE-NG password ("+config.PasswordVar+")")
	flags.StringVar(&a.flags.lab, "lab", "", "lab path relative to "+eveng.DefaultLabsRoot+" ("+config.LabVar+")")
	flags.BoolVar(&a.flags.insecure, "insecure", false, "skip verification of the server certificate ("+config.InsecureVar+")")
	flags.IntVar(&a.flags.tenant, "tenant", 0, "EVE-NG tenant running the lab ("+config.TenantVar+")")
	flags.StringVar(&a.flags.wrapper, "wrapper", eveng.DefaultWrapperPath, "path to unl_wrapper ("+config.WrapperVar+")")
	flags.BoolVar(&a.flags.sudo, "sudo", true, "run unl_wrapper with sudo ("+config.SudoVar+")")
	flags.BoolVar(&a.flags.dryRun, "dry-run", false, "log the operations without performing them")
	flags.BoolVar(&a.flags.debug, "debug", false, "enable debug logging")
	flags.StringVar(&a.flags.logFormat, "log-format", "text", "log format: text or json")
	flags.StringVar(&a.flags.metricsFile, "metrics-file", "", "write metrics to this file in Prometheus text format")

	rootCmd.AddCommand(buildInventoryCmd(a))
	rootCmd.AddCommand(buildOperationCmd(a, linkops.Suspend))
	rootCmd.AddCommand(buildOperationCmd(a, linkops.Resume))
	rootCmd.AddCommand(buildOperationCmd(a, linkops.Flap))
	rootCmd.AddCommand(buildBatchCmd(a))
	rootCmd.AddCommand(buildVersionCmd())

	return &RootCommand{
		cmd: rootCmd,
		env: env,
	}
}

// Do executes the root command with the arguments of the environment. The command is
// canceled if an interrupt or termination signal is received.
func (r *RootCommand) Do(ctx context.Context) error {
	ctx, cancel := runtime.CancelOnSignal(ctx, r.env.Signal(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	r.cmd.SetArgs(r.env.Args()[1:])

	err := r.cmd.ExecuteContext(ctx)

	var signalErr *runtime.SignalError
	if cause := context.Cause(ctx); errors.As(cause, &signalErr) {
		if err == nil {
			return signalErr
		}
		return fmt.Errorf("%w: %w", signalErr, err)
	}

	return err
}

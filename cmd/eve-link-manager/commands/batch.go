package commands

import (
	"fmt"
	"time"

	"github.com/grafana/eve-link-manager/pkg/batch"
	"github.com/grafana/eve-link-manager/pkg/linkops"
	"github.com/spf13/cobra"
)

// buildBatchCmd builds the command for applying an operation to the interfaces listed in a file
func buildBatchCmd(a *app) *cobra.Command {
	var file string
	var operation string
	count := 1
	delay := time.Second

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Apply an operation to the interfaces listed in a file",
		Long: "Apply an operation to the interfaces listed in a file, one per line, in order.\n" +
			"Each line is either \"device,interface\" (names or ids) or\n" +
			"\"device_id,interface_id,device2_id,interface2_id\" for the two ends of a link.\n" +
			"Blank lines and lines starting with # are ignored. Failed lines do not stop the batch.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := linkops.ParseKind(operation)
			if err != nil {
				return err
			}

			if kind == linkops.Flap && (count < 1 || delay < 0) {
				return fmt.Errorf("%w: count must be positive and delay non-negative", linkops.ErrInvalidRequest)
			}

			return a.finish(a.runBatch(cmd, file, batch.Options{Kind: kind, Count: count, Delay: delay}))
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "file with the interfaces to process")
	cmd.Flags().StringVarP(&operation, "operation", "o", "", "operation to perform: suspend, resume or flap")
	cmd.Flags().IntVarP(&count, "count", "c", 1, "number of times to flap each interface")
	cmd.Flags().DurationVarP(&delay, "delay", "d", time.Second, "time each interface is kept suspended and between flaps")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("operation")

	return cmd
}

func (a *app) runBatch(cmd *cobra.Command, file string, opts batch.Options) error {
	s, err := a.connect(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	runner := batch.NewRunner(s.snapshot, a.executor(a.wrapper(s.lab)), a.log)
	report, err := runner.RunFile(cmd.Context(), file, opts)
	if report == nil {
		return err
	}

	for _, r := range report.Results {
		a.metrics.BatchLine(r.Status.String())
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"\nBatch processing complete:\n  Successful operations: %d\n  Failed operations: %d\n",
		report.Succeeded(), report.Failed(),
	)

	if err != nil {
		return err
	}

	return report.Err()
}

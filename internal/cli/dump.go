package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// DumpOptions holds the flags of the dump command.
type DumpOptions struct {
	Debug bool
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the resolved configuration",
		Long: `Print every resolved property. The text format is a TOML document nested
by name segments; the json format lists each value with the store it came
from. --debug prints the store stack and every store's raw value instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "print raw store contents")
	return cmd
}

func runDump(cmd *cobra.Command, rootOpts *RootOptions, opts *DumpOptions) error {
	s, err := openSession(rootOpts)
	if s != nil {
		defer s.close(cmd.ErrOrStderr()) //nolint:errcheck
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case opts.Debug:
		_, err := fmt.Fprint(out, s.registry.Debug())
		return err
	case rootOpts.Format == "json":
		resolved, err := s.registry.Snapshot()
		if err != nil {
			return err
		}
		return writeJSON(out, explanations(resolved))
	default:
		return s.registry.Dump(out)
	}
}

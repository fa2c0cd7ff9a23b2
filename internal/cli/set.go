package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scray/properties"
)

// SetOptions holds the flags of the set command.
type SetOptions struct {
	Target      string
	NoOverwrite bool
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SetOptions{}

	cmd := &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Write a checked value into a property file",
		Long: `Push the target file on top of all other stores, then assign the value
through the registry: it is converted to the declared type and checked
against the schema constraints before the file is rewritten atomically.
The configuration as a whole must validate first.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(cmd, rootOpts, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&opts.Target, "target", "t", "", "property file to write (created if missing)")
	cmd.Flags().BoolVar(&opts.NoOverwrite, "no-overwrite", false, "fail if the target already holds a value")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func runSet(cmd *cobra.Command, rootOpts *RootOptions, opts *SetOptions, name, value string) error {
	target := properties.NewFileStore(opts.Target, properties.Optional(), properties.Persist())

	s, err := openSession(rootOpts, target)
	if s != nil {
		defer s.close(cmd.ErrOrStderr()) //nolint:errcheck
	}
	if err != nil {
		return err
	}

	if err := s.registry.SetRaw(name, value, !opts.NoOverwrite); err != nil {
		return err
	}
	res, err := s.registry.Explain(name)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s = %v (%s)\n", res.Name, res.Value, res.Source)
	return err
}

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/scray/properties"
)

// ValidationResult is the machine readable outcome of validate.
type ValidationResult struct {
	Valid      bool     `json:"valid"`
	Properties int      `json:"properties"`
	Errors     []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that every declared property resolves",
		Long: `Register the schema, push the stores and enter the use phase. Fails if
any property has neither a store value nor a default, or if a stored value
cannot be converted to its declared type.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, rootOpts)
		},
	}
}

func runValidate(cmd *cobra.Command, opts *RootOptions) error {
	out := cmd.OutOrStdout()

	s, err := openSession(opts)
	if s != nil {
		defer s.close(cmd.ErrOrStderr()) //nolint:errcheck
	}

	var ve *properties.ValidationError
	switch {
	case errors.As(err, &ve):
		result := ValidationResult{Errors: make([]string, len(ve.Errors))}
		for i, e := range ve.Errors {
			result.Errors[i] = e.Error()
		}
		if err := printValidation(out, opts.Format, result); err != nil {
			return err
		}
		return fmt.Errorf("%d properties failed validation", len(ve.Errors))
	case err != nil:
		return err
	}

	return printValidation(out, opts.Format, ValidationResult{
		Valid:      true,
		Properties: len(s.registry.Registered()),
	})
}

func printValidation(w io.Writer, format string, r ValidationResult) error {
	if format == "json" {
		return writeJSON(w, r)
	}
	if r.Valid {
		_, err := fmt.Fprintf(w, "ok: %d properties resolved\n", r.Properties)
		return err
	}
	for _, e := range r.Errors {
		if _, err := fmt.Fprintf(w, "error: %s\n", e); err != nil {
			return err
		}
	}
	return nil
}

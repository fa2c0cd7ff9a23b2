package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scray/properties"
)

// Explanation reports where one property value came from.
type Explanation struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Source  string `json:"source"`
	Level   int    `json:"level"`
	Default bool   `json:"default"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <name>...",
		Short: "Show which store supplies each property",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(cmd, rootOpts, args)
		},
	}
}

func runExplain(cmd *cobra.Command, opts *RootOptions, names []string) error {
	s, err := openSession(opts)
	if s != nil {
		defer s.close(cmd.ErrOrStderr()) //nolint:errcheck
	}
	if err != nil {
		return err
	}

	resolved := make([]properties.Resolution, 0, len(names))
	for _, name := range names {
		res, err := s.registry.Explain(name)
		if err != nil {
			return err
		}
		resolved = append(resolved, res)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, explanations(resolved))
	}
	for _, e := range explanations(resolved) {
		if _, err := fmt.Fprintf(out, "%s = %s (%s)\n", e.Name, e.Value, e.Source); err != nil {
			return err
		}
	}
	return nil
}

func explanations(resolved []properties.Resolution) []Explanation {
	result := make([]Explanation, len(resolved))
	for i, res := range resolved {
		result[i] = Explanation{
			Name:    res.Name,
			Value:   fmt.Sprint(res.Value),
			Source:  res.Source,
			Level:   res.Level,
			Default: res.Defaulted(),
		}
	}
	return result
}

// Package cli implements the propcheck command, which checks property files
// against a declarative schema the same way a process would at startup.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds the global flags shared by all commands.
type RootOptions struct {
	Schema    string
	Files     []string
	DotEnv    []string
	EnvPrefix string
	Sets      []string
	Bootstrap string // application name for default discovery, empty disables it
	LogLevel  string
	Format    string // text | json
	Metrics   bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for propcheck.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "propcheck",
		Short: "Check property stores against a schema",
		Long: `propcheck registers the properties declared in a TOML schema, pushes
the given stores (files, .env files, environment, --set overrides) and runs
the same validation a process runs before it starts.

Stores are searched from the last one pushed: --set, then the environment,
then .env files, then property files in the order given, then the
bootstrap-discovered file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Schema == "" {
				return fmt.Errorf("--schema is required")
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.Schema, "schema", "s", "", "TOML schema declaring the properties")
	flags.StringArrayVarP(&opts.Files, "file", "f", nil, "property file (toml, json, yaml, properties), repeatable")
	flags.StringArrayVar(&opts.DotEnv, "dotenv", nil, ".env file, repeatable")
	flags.StringVar(&opts.EnvPrefix, "env-prefix", "", "read environment variables with this prefix")
	flags.StringArrayVar(&opts.Sets, "set", nil, "override a property, name=value, repeatable")
	flags.StringVar(&opts.Bootstrap, "bootstrap", "", "discover the default property file for this application name")
	flags.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.BoolVar(&opts.Metrics, "metrics", false, "print registry metrics to stderr on exit")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewSetCommand(opts))

	return cmd
}

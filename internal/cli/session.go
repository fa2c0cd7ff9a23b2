package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"github.com/scray/properties"
	"github.com/scray/properties/internal/logging"
	"github.com/scray/properties/internal/schema"
)

// session is one registry built from the command-line options.
type session struct {
	opts     *RootOptions
	registry *properties.Registry
	gatherer *prometheus.Registry
	logger   *zap.Logger
}

// openSession builds a registry in PhaseUse. top stores are pushed above
// everything the options describe.
func openSession(opts *RootOptions, top ...properties.Store) (*session, error) {
	logger, err := logging.New(logging.Config{Level: opts.LogLevel})
	if err != nil {
		return nil, err
	}

	ds, err := schema.Load(opts.Schema)
	if err != nil {
		return nil, err
	}

	s := &session{opts: opts, logger: logger}
	builder := properties.NewBuilder().
		WithLogger(logger).
		Register(ds...)

	if opts.Metrics {
		s.gatherer = prometheus.NewRegistry()
		m, err := properties.NewMetrics(s.gatherer)
		if err != nil {
			return nil, err
		}
		builder.WithMetrics(m)
	}

	if opts.Bootstrap != "" {
		b := properties.DefaultBootstrapOptions(opts.Bootstrap)
		b.Args = nil
		builder.WithBootstrap(b)
	}

	stores, err := opts.stores()
	if err != nil {
		return nil, err
	}
	builder.WithStores(stores...)
	builder.WithStores(top...)

	r, err := builder.Build()
	s.registry = r
	if err != nil {
		return s, err
	}
	return s, nil
}

// stores returns the stores described by the options, lowest priority first.
func (o *RootOptions) stores() ([]properties.Store, error) {
	var stores []properties.Store
	for _, path := range o.Files {
		stores = append(stores, properties.NewFileStore(path))
	}
	for _, path := range o.DotEnv {
		stores = append(stores, properties.NewDotEnvStore(path, o.EnvPrefix))
	}
	if o.EnvPrefix != "" {
		stores = append(stores, properties.NewEnvStore(o.EnvPrefix))
	}
	if len(o.Sets) > 0 {
		args := make([]string, 0, len(o.Sets))
		for _, kv := range o.Sets {
			if !strings.Contains(kv, "=") {
				return nil, fmt.Errorf("invalid --set %q: expected name=value", kv)
			}
			args = append(args, "--"+kv)
		}
		stores = append(stores, properties.NewArgsStore(args))
	}
	return stores, nil
}

// close flushes the logger and prints metrics if requested.
func (s *session) close(w io.Writer) error {
	defer s.logger.Sync() //nolint:errcheck
	if s.gatherer == nil {
		return nil
	}
	families, err := s.gatherer.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// FILE: scray/properties/inspect.go
package properties

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Explain resolves a property by name and reports which store supplied the
// value. Only legal in PhaseUse.
func (r *Registry) Explain(name string) (Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.props[name]
	if !ok {
		return Resolution{}, &PropertyError{Op: "get", Name: name, Err: ErrDescriptorMissing}
	}
	if err := r.checkPhase("get", name, PhaseUse); err != nil {
		return Resolution{}, err
	}
	return r.resolveLocked(d)
}

// Snapshot resolves every registered property. Properties that fail to
// resolve are reported through the returned error, the others are still
// included. Only legal in PhaseUse.
func (r *Registry) Snapshot() ([]Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkPhase("snapshot", "", PhaseUse); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(r.props))
	for name := range r.props {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]Resolution, 0, len(names))
	var failures []error
	for _, name := range names {
		res, err := r.resolveLocked(r.props[name])
		if err != nil {
			failures = append(failures, err)
			continue
		}
		result = append(result, res)
	}
	if len(failures) > 0 {
		return result, &ValidationError{Errors: failures}
	}
	return result, nil
}

// Dump writes all resolved values to w as a TOML document, nested by name
// segments. Domain values that TOML cannot represent are written with %v.
func (r *Registry) Dump(w io.Writer) error {
	resolved, err := r.Snapshot()
	if err != nil {
		return err
	}

	nested := make(map[string]any)
	for _, res := range resolved {
		setNestedValue(nested, res.Name, tomlValue(res.Value))
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(nested); err != nil {
		return fmt.Errorf("failed to marshal properties to TOML: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// Debug returns a human readable listing of the registry state.
func (r *Registry) Debug() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Phase: %s\n", r.phase)
	b.WriteString("Stores (highest priority last):\n")
	for i, s := range r.stores {
		_, writable := s.(WritableStore)
		fmt.Fprintf(&b, "  %d: %s (writable=%t)\n", i, storeName(s), writable)
	}

	names := make([]string, 0, len(r.props))
	for name := range r.props {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteString("Properties:\n")
	for _, name := range names {
		d := r.props[name]
		fmt.Fprintf(&b, "  %s: %s -> %s\n", name, d.storageType(), d.domainType())
		if def, ok := d.defaultAny(); ok {
			fmt.Fprintf(&b, "    Default: %v\n", def)
		}
		for i := len(r.stores) - 1; i >= 0; i-- {
			if v, ok := r.stores[i].Get(d); ok {
				fmt.Fprintf(&b, "    %s: %v\n", storeName(r.stores[i]), v)
			}
		}
	}
	return b.String()
}

// tomlValue keeps values the TOML encoder handles natively and stringifies
// the rest.
func tomlValue(v any) any {
	switch x := v.(type) {
	case string, bool, int, int8, int16, int32, int64,
		uint8, uint16, uint32, float32, float64, []string, []int, []int64, []float64:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

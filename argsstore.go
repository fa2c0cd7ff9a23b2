// FILE: scray/properties/argsstore.go
package properties

import (
	"fmt"
	"strings"
)

// ArgsStore is a read-only store built from command-line arguments of the
// form "--name value", "--name=value" or a bare "--flag" (read as "true").
// Arguments not starting with "--" are ignored.
type ArgsStore struct {
	args   []string
	values map[string]any
	skip   map[string]bool
}

// NewArgsStore creates a store over args, typically os.Args[1:]. Flags
// listed in skip are not treated as properties (e.g. the bootstrap flag).
func NewArgsStore(args []string, skip ...string) *ArgsStore {
	s := &ArgsStore{
		args: args,
		skip: make(map[string]bool, len(skip)),
	}
	for _, name := range skip {
		s.skip[strings.TrimPrefix(name, "--")] = true
	}
	return s
}

// Init parses the arguments.
func (a *ArgsStore) Init() error {
	values, err := parseArgs(a.args)
	if err != nil {
		return err
	}
	for name := range a.skip {
		delete(values, name)
	}
	a.values = values
	return nil
}

// Get returns the argument value for d.
func (a *ArgsStore) Get(d Descriptor) (any, bool) {
	v, ok := a.values[d.Name()]
	return v, ok
}

func (a *ArgsStore) String() string { return "args" }

// parseArgs processes command-line arguments into a flat name -> string map.
func parseArgs(args []string) (map[string]any, error) {
	result := make(map[string]any)
	i := 0
	for i < len(args) {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			// Skip non-flag arguments
			i++
			continue
		}

		argContent := strings.TrimPrefix(arg, "--")
		if argContent == "" {
			// Skip "--" argument if used as a separator
			i++
			continue
		}

		var keyPath string
		var valueStr string

		// Check for "--key=value" format
		if strings.Contains(argContent, "=") {
			parts := strings.SplitN(argContent, "=", 2)
			keyPath = parts[0]
			valueStr = parts[1]
			i++
		} else {
			keyPath = argContent
			// Boolean flag if the next arg is another flag or there is none
			if i+1 >= len(args) || strings.HasPrefix(args[i+1], "--") {
				valueStr = "true"
				i++
			} else {
				valueStr = args[i+1]
				i += 2
			}
		}

		if keyPath == "" {
			// Skip invalid flags like --=value
			continue
		}
		if err := validateName(keyPath); err != nil {
			return nil, fmt.Errorf("invalid command-line key %q: %w", keyPath, err)
		}
		if len(valueStr) > MaxValueSize {
			return nil, fmt.Errorf("command-line value for %q exceeds %d bytes", keyPath, MaxValueSize)
		}

		// Always store as a string, the descriptor decides the final type.
		result[keyPath] = valueStr
	}

	return result, nil
}

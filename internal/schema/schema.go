// FILE: scray/properties/internal/schema/schema.go
// Package schema reads property declarations from a TOML document so that
// tools can validate configuration files without compiling the descriptors
// of the program that consumes them.
//
//	[[property]]
//	name        = "client.timeout"
//	type        = "duration"
//	default     = "30s"
//	min         = "1s"
//	description = "request timeout"
package schema

import (
	"cmp"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"

	"github.com/scray/properties"
)

// Supported entry types.
const (
	TypeString   = "string"
	TypeInt      = "int"
	TypeFloat    = "float"
	TypeBool     = "bool"
	TypeDuration = "duration"
	TypeList     = "list"
	TypeURL      = "url"
)

// ErrSchema marks a malformed schema document or entry.
var ErrSchema = errors.New("invalid schema")

// Entry is one [[property]] table.
type Entry struct {
	Name        string `toml:"name"`
	Type        string `toml:"type"`
	Description string `toml:"description"`
	Default     any    `toml:"default"`
	Min         any    `toml:"min"`
	Max         any    `toml:"max"`
	Enum        []any  `toml:"enum"`
	Pattern     string `toml:"pattern"`
}

type document struct {
	Properties []Entry `toml:"property"`
}

// Load reads a schema file and returns its descriptors in document order.
func Load(path string) ([]properties.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema '%s': %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a schema document. Unknown keys are rejected.
func Parse(data []byte) ([]properties.Descriptor, error) {
	var doc document
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchema, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrSchema, strings.Join(keys, ", "))
	}

	ds := make([]properties.Descriptor, 0, len(doc.Properties))
	for i, e := range doc.Properties {
		d, err := e.Descriptor()
		if err != nil {
			return nil, fmt.Errorf("property #%d: %w", i+1, err)
		}
		ds = append(ds, d)
	}
	return ds, nil
}

// Descriptor builds the typed descriptor the entry declares.
func (e Entry) Descriptor() (properties.Descriptor, error) {
	if e.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrSchema)
	}
	typ := strings.ToLower(strings.TrimSpace(e.Type))
	if typ == "" {
		typ = TypeString
	}

	switch typ {
	case TypeString:
		cs, err := stringConstraints(e)
		if err != nil {
			return nil, err
		}
		if err := e.noBounds(typ); err != nil {
			return nil, err
		}
		return finish(properties.String(e.Name), e, decodeAs[string], cs)

	case TypeInt:
		if err := e.noPattern(typ); err != nil {
			return nil, err
		}
		cs, err := orderedConstraints[int64](e)
		if err != nil {
			return nil, err
		}
		return finish(properties.Int64(e.Name), e, decodeAs[int64], cs)

	case TypeFloat:
		if err := e.noPattern(typ); err != nil {
			return nil, err
		}
		cs, err := orderedConstraints[float64](e)
		if err != nil {
			return nil, err
		}
		return finish(properties.Float64(e.Name), e, decodeAs[float64], cs)

	case TypeBool:
		if err := e.only(typ); err != nil {
			return nil, err
		}
		return finish(properties.Bool(e.Name), e, decodeAs[bool], nil)

	case TypeDuration:
		if err := e.noPattern(typ); err != nil {
			return nil, err
		}
		if len(e.Enum) > 0 {
			return nil, fmt.Errorf("%w: %s: enum is not supported for %s", ErrSchema, e.Name, typ)
		}
		lo, hi, err := bounds[time.Duration](e)
		if err != nil {
			return nil, err
		}
		var cs []func(string) bool
		if lo != nil || hi != nil {
			cs = append(cs, func(s string) bool {
				d, err := time.ParseDuration(s)
				return err == nil && within(d, lo, hi)
			})
		}
		return finish(properties.Duration(e.Name), e, decodeAs[time.Duration], cs)

	case TypeList:
		if err := e.only(typ); err != nil {
			return nil, err
		}
		p := properties.StringList(e.Name)
		return finish(p, e, func(raw any) ([]string, error) {
			if s, ok := raw.(string); ok {
				return p.FromStorage(s)
			}
			return decodeAs[[]string](raw)
		}, nil)

	case TypeURL:
		if err := e.noBounds(typ); err != nil {
			return nil, err
		}
		cs, err := stringConstraints(e)
		if err != nil {
			return nil, err
		}
		return finish(properties.URL(e.Name), e, func(raw any) (*url.URL, error) {
			s, err := decodeAs[string](raw)
			if err != nil {
				return nil, err
			}
			return url.Parse(s)
		}, cs)
	}
	return nil, fmt.Errorf("%w: %s: unknown type %q", ErrSchema, e.Name, e.Type)
}

// finish applies description, constraints and default. A default that does
// not satisfy the constraints is rejected here rather than at lookup time.
func finish[S, D any](p *properties.Property[S, D], e Entry, decode func(any) (D, error), cs []func(S) bool) (properties.Descriptor, error) {
	p = p.WithDescription(e.Description)
	if len(cs) > 0 {
		p = p.WithConstraint(properties.All(cs...))
	}
	if e.Default == nil {
		return p, nil
	}

	v, err := decode(e.Default)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: invalid default %v: %w", ErrSchema, e.Name, e.Default, err)
	}
	s, err := p.ToStorage(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: invalid default %v: %w", ErrSchema, e.Name, e.Default, err)
	}
	if !p.Check(s) {
		return nil, fmt.Errorf("%w: %s: default %v: %w", ErrSchema, e.Name, e.Default, properties.ErrConstraintViolation)
	}
	return p.WithDefault(v), nil
}

func stringConstraints(e Entry) ([]func(string) bool, error) {
	var cs []func(string) bool
	if len(e.Enum) > 0 {
		allowed := make([]string, 0, len(e.Enum))
		for _, raw := range e.Enum {
			v, err := decodeAs[string](raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: enum value %v: %w", ErrSchema, e.Name, raw, err)
			}
			allowed = append(allowed, v)
		}
		cs = append(cs, properties.OneOf(allowed...))
	}
	if e.Pattern != "" {
		if _, err := regexp.Compile(e.Pattern); err != nil {
			return nil, fmt.Errorf("%w: %s: pattern: %w", ErrSchema, e.Name, err)
		}
		cs = append(cs, properties.Matches(e.Pattern))
	}
	return cs, nil
}

func orderedConstraints[T cmp.Ordered](e Entry) ([]func(T) bool, error) {
	var cs []func(T) bool
	if len(e.Enum) > 0 {
		allowed := make([]T, 0, len(e.Enum))
		for _, raw := range e.Enum {
			v, err := decodeAs[T](raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: enum value %v: %w", ErrSchema, e.Name, raw, err)
			}
			allowed = append(allowed, v)
		}
		cs = append(cs, properties.OneOf(allowed...))
	}
	lo, hi, err := bounds[T](e)
	if err != nil {
		return nil, err
	}
	if lo != nil || hi != nil {
		cs = append(cs, func(v T) bool { return within(v, lo, hi) })
	}
	return cs, nil
}

func bounds[T cmp.Ordered](e Entry) (lo, hi *T, err error) {
	if e.Min != nil {
		v, err := decodeAs[T](e.Min)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: min: %w", ErrSchema, e.Name, err)
		}
		lo = &v
	}
	if e.Max != nil {
		v, err := decodeAs[T](e.Max)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: max: %w", ErrSchema, e.Name, err)
		}
		hi = &v
	}
	if lo != nil && hi != nil && *lo > *hi {
		return nil, nil, fmt.Errorf("%w: %s: min %v is greater than max %v", ErrSchema, e.Name, *lo, *hi)
	}
	return lo, hi, nil
}

func within[T cmp.Ordered](v T, lo, hi *T) bool {
	return (lo == nil || v >= *lo) && (hi == nil || v <= *hi)
}

func (e Entry) noPattern(typ string) error {
	if e.Pattern != "" {
		return fmt.Errorf("%w: %s: pattern is not supported for %s", ErrSchema, e.Name, typ)
	}
	return nil
}

func (e Entry) noBounds(typ string) error {
	if e.Min != nil || e.Max != nil {
		return fmt.Errorf("%w: %s: min/max are not supported for %s", ErrSchema, e.Name, typ)
	}
	return nil
}

func (e Entry) only(typ string) error {
	if len(e.Enum) > 0 {
		return fmt.Errorf("%w: %s: enum is not supported for %s", ErrSchema, e.Name, typ)
	}
	if err := e.noPattern(typ); err != nil {
		return err
	}
	return e.noBounds(typ)
}

// decodeAs converts TOML scalars with the same weak rules stores use, so
// "30s", 8080 and "8080" are all acceptable where they make sense while
// 1.5 for an integer is not.
func decodeAs[T any](raw any) (T, error) {
	var out T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		DecodeHook:       properties.StorageDecodeHook(),
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(raw); err != nil {
		return out, err
	}
	return out, nil
}

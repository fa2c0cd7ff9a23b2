// FILE: scray/properties/property.go
package properties

import (
	"fmt"
	"reflect"
)

// SourceDefault is the source name reported when a value falls back to
// the descriptor's default.
const SourceDefault = "default"

// Descriptor is the type-erased view of a property that stores see.
type Descriptor interface {
	// Name is the unique dot-separated property name (e.g. "client.timeout").
	Name() string
	// Description is optional human readable documentation.
	Description() string
}

// descriptor lets the registry handle properties of mixed type parameters.
type descriptor interface {
	Descriptor
	resolveAny(stores []Store) (Resolution, error)
	encodeAny(v any) (any, error)
	decodeAny(raw any) (any, error)
	defaultAny() (any, bool)
	storageType() reflect.Type
	domainType() reflect.Type
}

// Resolution describes where a resolved value came from.
type Resolution struct {
	Name   string
	Value  any    // domain value
	Source string // store name, or SourceDefault
	Level  int    // stack position of the winning store, -1 for the default
}

// Defaulted reports whether the value is the descriptor default.
func (r Resolution) Defaulted() bool { return r.Level < 0 }

// Property is an immutable definition of one configurable setting. S is the
// storage representation, D the domain value handed to callers.
// The With* methods return modified copies.
type Property[S, D any] struct {
	name        string
	description string
	to          func(D) (S, error)
	from        func(S) (D, error)
	def         D
	hasDef      bool
	constraint  func(S) bool
}

// NewProperty creates a descriptor with explicit storage transforms.
func NewProperty[S, D any](name string, to func(D) (S, error), from func(S) (D, error)) *Property[S, D] {
	return &Property[S, D]{
		name: name,
		to:   to,
		from: from,
	}
}

// Identity creates a descriptor whose storage and domain types are the same.
func Identity[T any](name string) *Property[T, T] {
	same := func(v T) (T, error) { return v, nil }
	return NewProperty(name, same, same)
}

// Name returns the property name.
func (p *Property[S, D]) Name() string { return p.name }

// Description returns the property documentation.
func (p *Property[S, D]) Description() string { return p.description }

// Default returns the default domain value and whether one is set.
func (p *Property[S, D]) Default() (D, bool) { return p.def, p.hasDef }

// WithDefault returns a copy of p that falls back to v.
func (p *Property[S, D]) WithDefault(v D) *Property[S, D] {
	c := *p
	c.def = v
	c.hasDef = true
	return &c
}

// WithConstraint returns a copy of p whose storage values must satisfy fn.
func (p *Property[S, D]) WithConstraint(fn func(S) bool) *Property[S, D] {
	c := *p
	c.constraint = fn
	return &c
}

// WithDescription returns a copy of p carrying a description.
func (p *Property[S, D]) WithDescription(desc string) *Property[S, D] {
	c := *p
	c.description = desc
	return &c
}

// ToStorage converts a domain value into its storage form.
func (p *Property[S, D]) ToStorage(v D) (S, error) {
	s, err := p.to(v)
	if err != nil {
		var zero S
		return zero, fmt.Errorf("%w: %w", ErrTransform, err)
	}
	return s, nil
}

// FromStorage converts a storage value into its domain form.
func (p *Property[S, D]) FromStorage(s S) (D, error) {
	d, err := p.from(s)
	if err != nil {
		var zero D
		return zero, fmt.Errorf("%w: %w", ErrTransform, err)
	}
	return d, nil
}

// Check reports whether s satisfies the constraint. No constraint accepts all.
func (p *Property[S, D]) Check(s S) bool {
	return p.constraint == nil || p.constraint(s)
}

func (p *Property[S, D]) String() string {
	return fmt.Sprintf("%s (%s -> %s)", p.name, p.storageType(), p.domainType())
}

// resolve searches the stores from the top of the stack down. The first store
// holding a value wins, lower stores are never consulted.
func (p *Property[S, D]) resolve(stores []Store) (D, Resolution, error) {
	var zero D
	for i := len(stores) - 1; i >= 0; i-- {
		raw, ok := stores[i].Get(p)
		if !ok {
			continue
		}
		name := storeName(stores[i])
		s, err := decodeStorage[S](raw)
		if err != nil {
			return zero, Resolution{}, fmt.Errorf("%w: store %s: %w", ErrStorageFormat, name, err)
		}
		d, err := p.FromStorage(s)
		if err != nil {
			return zero, Resolution{}, err
		}
		return d, Resolution{Name: p.name, Value: d, Source: name, Level: i}, nil
	}

	if p.hasDef {
		return p.def, Resolution{Name: p.name, Value: p.def, Source: SourceDefault, Level: -1}, nil
	}
	return zero, Resolution{}, ErrPropertyEmpty
}

func (p *Property[S, D]) resolveAny(stores []Store) (Resolution, error) {
	_, res, err := p.resolve(stores)
	return res, err
}

// encode transforms and constraint-checks a domain value for writing.
func (p *Property[S, D]) encode(v D) (S, error) {
	s, err := p.ToStorage(v)
	if err != nil {
		return s, err
	}
	if !p.Check(s) {
		var zero S
		return zero, fmt.Errorf("%w: %v", ErrConstraintViolation, s)
	}
	return s, nil
}

func (p *Property[S, D]) encodeAny(v any) (any, error) {
	d, ok := v.(D)
	if !ok {
		return nil, fmt.Errorf("%w: want %s, got %T", ErrTypeMismatch, p.domainType(), v)
	}
	return p.encode(d)
}

// decodeAny coerces a raw value into a checked storage value, making sure it
// also converts to the domain type.
func (p *Property[S, D]) decodeAny(raw any) (any, error) {
	s, err := decodeStorage[S](raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFormat, err)
	}
	if _, err := p.FromStorage(s); err != nil {
		return nil, err
	}
	if !p.Check(s) {
		return nil, fmt.Errorf("%w: %v", ErrConstraintViolation, s)
	}
	return s, nil
}

func (p *Property[S, D]) defaultAny() (any, bool) { return p.def, p.hasDef }

func (p *Property[S, D]) storageType() reflect.Type { return reflect.TypeFor[S]() }

func (p *Property[S, D]) domainType() reflect.Type { return reflect.TypeFor[D]() }

// File: scray/properties/builder.go
package properties

import (
	"fmt"

	"go.uber.org/zap"
)

// ValidatorFunc runs against a registry that reached PhaseUse.
type ValidatorFunc func(r *Registry) error

// Builder provides a fluent interface for the register -> config -> use
// lifecycle.
type Builder struct {
	opts        []Option
	descriptors []Descriptor
	stores      []Store
	validators  []ValidatorFunc
}

// NewBuilder creates a new registry builder
func NewBuilder() *Builder {
	return &Builder{}
}

// WithLogger sets the registry logger
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.opts = append(b.opts, WithLogger(l))
	return b
}

// WithMetrics sets the registry metrics
func (b *Builder) WithMetrics(m *Metrics) *Builder {
	b.opts = append(b.opts, WithMetrics(m))
	return b
}

// WithBootstrap enables default store discovery
func (b *Builder) WithBootstrap(opts BootstrapOptions) *Builder {
	b.opts = append(b.opts, WithBootstrap(opts))
	return b
}

// Register adds descriptors to declare
func (b *Builder) Register(ds ...Descriptor) *Builder {
	b.descriptors = append(b.descriptors, ds...)
	return b
}

// WithStores adds stores, lowest priority first. They are pushed after any
// bootstrap store, so they take priority over it.
func (b *Builder) WithStores(stores ...Store) *Builder {
	b.stores = append(b.stores, stores...)
	return b
}

// WithValidator adds a validation function that runs once the registry is
// in PhaseUse. Validators run in the order they are added.
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// Build creates the registry and drives it to PhaseUse.
func (b *Builder) Build() (*Registry, error) {
	r := New(b.opts...)

	if err := r.Register(b.descriptors...); err != nil {
		return nil, fmt.Errorf("failed to register properties: %w", err)
	}
	if err := r.Advance(PhaseConfig); err != nil {
		return nil, fmt.Errorf("failed to enter config phase: %w", err)
	}
	if err := r.Push(b.stores...); err != nil {
		return nil, fmt.Errorf("failed to push stores: %w", err)
	}
	if err := r.Advance(PhaseUse); err != nil {
		return nil, err
	}

	for _, validator := range b.validators {
		if err := validator(r); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return r, nil
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() *Registry {
	r, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("property registry build failed: %v", err))
	}
	return r
}

// FILE: scray/properties/registry.go
package properties

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry maps property names to descriptors and resolves their values
// through an ordered stack of stores. Every operation, including store I/O,
// runs under one mutex.
type Registry struct {
	mu        sync.Mutex
	props     map[string]descriptor
	stores    []Store // bottom -> top, last pushed has priority
	phase     Phase
	logger    *zap.Logger
	metrics   *Metrics
	bootstrap *BootstrapOptions
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithBootstrap enables default store discovery when the registry enters
// PhaseConfig.
func WithBootstrap(opts BootstrapOptions) Option {
	return func(r *Registry) { r.bootstrap = &opts }
}

// New creates an empty registry in PhaseRegister.
func New(opts ...Option) *Registry {
	r := &Registry{
		props:  make(map[string]descriptor),
		phase:  PhaseRegister,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.metrics.setPhase(r.phase)
	return r
}

// Phase returns the current lifecycle phase.
func (r *Registry) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Register declares descriptors. Only legal in PhaseRegister. Names must be
// unique, the first registration of a name is kept. Registration stops at the
// first failing descriptor.
func (r *Registry) Register(ds ...Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkPhase("register", "", PhaseRegister); err != nil {
		// A duplicate is reported as such in every phase
		for _, d := range ds {
			name := d.Name()
			if _, exists := r.props[name]; exists {
				err = r.checkPhase("register", name, PhaseRegister)
				return &PropertyError{Op: "register", Name: name, Err: errors.Join(ErrDescriptorExists, err)}
			}
		}
		if len(ds) > 0 {
			return r.checkPhase("register", ds[0].Name(), PhaseRegister)
		}
		return err
	}

	for _, d := range ds {
		name := d.Name()
		if err := validateName(name); err != nil {
			return &PropertyError{Op: "register", Name: name, Err: err}
		}
		internal, ok := d.(descriptor)
		if !ok {
			return &PropertyError{Op: "register", Name: name, Err: fmt.Errorf("unsupported descriptor type %T", d)}
		}
		if _, exists := r.props[name]; exists {
			return &PropertyError{Op: "register", Name: name, Err: ErrDescriptorExists}
		}
		r.props[name] = internal
		r.logger.Debug("Registered property",
			zap.String("property", name),
			zap.Stringer("storage_type", internal.storageType()),
			zap.Stringer("domain_type", internal.domainType()))
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(ds ...Descriptor) {
	if err := r.Register(ds...); err != nil {
		panic(err)
	}
}

// Registered returns a snapshot of all descriptors, sorted by name.
func (r *Registry) Registered() []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]Descriptor, 0, len(r.props))
	for _, d := range r.props {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.props[name]
	return d, ok
}

// Push initializes stores and puts them on top of the stack, in argument
// order. Only legal in PhaseConfig. A store whose Init fails is not pushed.
func (r *Registry) Push(stores ...Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range stores {
		if err := r.pushLocked(s); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) pushLocked(s Store) error {
	if err := r.checkPhase("push", "", PhaseConfig); err != nil {
		return err
	}
	name := storeName(s)
	if err := s.Init(); err != nil {
		return &PropertyError{Op: "push", Err: fmt.Errorf("%w: %s: %w", ErrStoreInit, name, err)}
	}
	r.stores = append(r.stores, s)
	r.metrics.setStores(len(r.stores))
	r.logger.Debug("Pushed property store",
		zap.String("store", name),
		zap.Int("level", len(r.stores)-1))
	return nil
}

// Stores returns a snapshot of the stack, bottom first.
func (r *Registry) Stores() []Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.stores)
}

// Get resolves the value of p. Only legal in PhaseUse, and p must be the
// descriptor instance that was registered.
func Get[S, D any](r *Registry, p *Property[S, D]) (D, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero D
	if err := r.checkAccess("get", p); err != nil {
		return zero, err
	}
	v, res, err := p.resolve(r.stores)
	r.observeResolution(p.name, res, err)
	if err != nil {
		return zero, &PropertyError{Op: "get", Name: p.name, Err: err}
	}
	return v, nil
}

// MustGet is like Get but panics on error.
func MustGet[S, D any](r *Registry, p *Property[S, D]) D {
	v, err := Get(r, p)
	if err != nil {
		panic(err)
	}
	return v
}

// Value resolves a property by name and returns its domain value.
func (r *Registry) Value(name string) (any, error) {
	res, err := r.Explain(name)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// GetByName resolves a property by name and checks that its domain value
// has type D.
func GetByName[D any](r *Registry, name string) (D, error) {
	var zero D
	v, err := r.Value(name)
	if err != nil {
		return zero, err
	}
	d, ok := v.(D)
	if !ok {
		return zero, &PropertyError{Op: "get", Name: name,
			Err: fmt.Errorf("%w: want %T, got %T", ErrTypeMismatch, zero, v)}
	}
	return d, nil
}

// Set writes v to the top store of the stack. Only legal in PhaseUse. The
// storage form of v must satisfy p's constraint. With overwrite false the
// write fails if the top store already holds a value for p; values in lower
// stores do not count.
func Set[S, D any](r *Registry, p *Property[S, D], v D, overwrite bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkAccess("set", p); err != nil {
		return err
	}
	s, err := p.encode(v)
	if err != nil {
		r.metrics.observeAssignment(p.name, err)
		return &PropertyError{Op: "set", Name: p.name, Err: err}
	}
	return r.writeLocked(p, s, overwrite)
}

// SetValue is Set by name. v must have the property's domain type.
func (r *Registry) SetValue(name string, v any, overwrite bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.props[name]
	if !ok {
		return &PropertyError{Op: "set", Name: name, Err: ErrDescriptorMissing}
	}
	if err := r.checkPhase("set", name, PhaseUse); err != nil {
		return err
	}
	s, err := d.encodeAny(v)
	if err != nil {
		r.metrics.observeAssignment(name, err)
		return &PropertyError{Op: "set", Name: name, Err: err}
	}
	return r.writeLocked(d, s, overwrite)
}

// SetRaw is SetValue for untyped input such as command-line text: raw is
// coerced into the storage type the same way store values are, then
// transformed and constraint-checked before the write.
func (r *Registry) SetRaw(name string, raw any, overwrite bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.props[name]
	if !ok {
		return &PropertyError{Op: "set", Name: name, Err: ErrDescriptorMissing}
	}
	if err := r.checkPhase("set", name, PhaseUse); err != nil {
		return err
	}
	s, err := d.decodeAny(raw)
	if err != nil {
		r.metrics.observeAssignment(name, err)
		return &PropertyError{Op: "set", Name: name, Err: err}
	}
	return r.writeLocked(d, s, overwrite)
}

func (r *Registry) writeLocked(d Descriptor, value any, overwrite bool) (err error) {
	name := d.Name()
	defer func() { r.metrics.observeAssignment(name, err) }()

	if len(r.stores) == 0 {
		return &PropertyError{Op: "set", Name: name, Err: fmt.Errorf("%w: no store pushed", ErrUnsupportedWrite)}
	}
	top := r.stores[len(r.stores)-1]
	w, ok := top.(WritableStore)
	if !ok {
		return &PropertyError{Op: "set", Name: name, Err: fmt.Errorf("%w: %s", ErrUnsupportedWrite, storeName(top))}
	}
	if !overwrite {
		if _, exists := top.Get(d); exists {
			return &PropertyError{Op: "set", Name: name, Err: ErrValueExists}
		}
	}
	if err := w.Put(d, value); err != nil {
		return &PropertyError{Op: "set", Name: name, Err: fmt.Errorf("%w: %s: %w", ErrStoreWrite, storeName(top), err)}
	}
	r.logger.Debug("Assigned property value",
		zap.String("property", name),
		zap.String("store", storeName(top)),
		zap.Any("value", value))
	return nil
}

// Advance moves the registry to target, which must be later than the
// current phase.
//
// Entering PhaseConfig runs bootstrap discovery if configured; the phase is
// committed before the discovered store is pushed.
//
// Entering PhaseUse first resolves every registered property. If any fails
// the phase is left unchanged and a *ValidationError is returned; the caller
// must treat it as fatal.
func (r *Registry) Advance(target Phase) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	from := r.phase
	if !target.Valid() || target <= from {
		return &PhaseError{Op: "advance", Required: target, Current: from, order: true}
	}

	switch target {
	case PhaseConfig:
		r.setPhaseLocked(target)
		if err := r.bootstrapLocked(); err != nil {
			return err
		}
	case PhaseUse:
		if err := r.validateLocked(); err != nil {
			return err
		}
		r.setPhaseLocked(target)
	}

	r.logger.Debug("Phase transition complete",
		zap.Stringer("from", from),
		zap.Stringer("to", target))
	return nil
}

// MustAdvance is like Advance but panics on error.
func (r *Registry) MustAdvance(target Phase) {
	if err := r.Advance(target); err != nil {
		panic(err)
	}
}

// Validate runs the validation sweep without changing the phase. Legal in
// PhaseConfig and PhaseUse, e.g. to check a configuration before Advance or
// after a watched file was reloaded.
func (r *Registry) Validate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase == PhaseRegister {
		return &PhaseError{Op: "validate", Required: PhaseConfig, Current: r.phase}
	}
	return r.validateLocked()
}

// Reset clears descriptors and stores and returns to PhaseRegister. Stores
// implementing io.Closer are closed. Intended for sequential test harnesses,
// it must not race with other registry calls.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.stores {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				r.logger.Warn("Failed to close property store",
					zap.String("store", storeName(s)),
					zap.Error(err))
			}
		}
	}
	r.props = make(map[string]descriptor)
	r.stores = nil
	r.setPhaseLocked(PhaseRegister)
	r.metrics.setStores(0)
	r.logger.Debug("Registry reset")
}

func (r *Registry) setPhaseLocked(p Phase) {
	r.phase = p
	r.metrics.setPhase(p)
}

func (r *Registry) bootstrapLocked() error {
	if r.bootstrap == nil {
		return nil
	}
	s, err := r.bootstrap.discover()
	if err != nil {
		return &PropertyError{Op: "bootstrap", Err: err}
	}
	if s == nil {
		r.logger.Debug("No default property store discovered")
		return nil
	}
	r.logger.Info("Discovered default property store", zap.String("store", storeName(s)))
	return r.pushLocked(s)
}

// validateLocked resolves every registered property and collects failures.
func (r *Registry) validateLocked() error {
	names := make([]string, 0, len(r.props))
	for name := range r.props {
		names = append(names, name)
	}
	sort.Strings(names)

	var failures []error
	for _, name := range names {
		if _, err := r.resolveLocked(r.props[name]); err != nil {
			r.logger.Error("Property failed to resolve",
				zap.String("property", name),
				zap.Error(err))
			failures = append(failures, err)
		}
	}
	if len(failures) > 0 {
		return &ValidationError{Errors: failures}
	}
	return nil
}

// resolveLocked resolves d without a phase check.
func (r *Registry) resolveLocked(d descriptor) (Resolution, error) {
	res, err := d.resolveAny(r.stores)
	r.observeResolution(d.Name(), res, err)
	if err != nil {
		return res, &PropertyError{Op: "get", Name: d.Name(), Err: err}
	}
	return res, nil
}

func (r *Registry) observeResolution(name string, res Resolution, err error) {
	if err != nil {
		r.metrics.observeResolution(name, "", err)
		return
	}
	r.metrics.observeResolution(name, res.Source, nil)
	r.logger.Debug("Resolved property",
		zap.String("property", name),
		zap.String("source", res.Source),
		zap.Any("value", res.Value))
}

func (r *Registry) checkPhase(op, name string, required Phase) error {
	if r.phase != required {
		return &PhaseError{Op: op, Name: name, Required: required, Current: r.phase}
	}
	return nil
}

// checkAccess verifies phase and registration for a typed read or write.
func (r *Registry) checkAccess(op string, d descriptor) error {
	name := d.Name()
	if err := r.checkPhase(op, name, PhaseUse); err != nil {
		return err
	}
	registered, ok := r.props[name]
	if !ok {
		return &PropertyError{Op: op, Name: name, Err: ErrDescriptorMissing}
	}
	if registered != d {
		return &PropertyError{Op: op, Name: name, Err: ErrDescriptorMismatch}
	}
	return nil
}

// IsFatal reports whether err is a validation sweep failure, which a process
// must not continue past.
func IsFatal(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

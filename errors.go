// FILE: scray/properties/errors.go
package properties

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match them with errors.Is.
var (
	ErrDescriptorExists    = errors.New("property already registered")
	ErrDescriptorMissing   = errors.New("property not registered")
	ErrDescriptorMismatch  = errors.New("descriptor is not the registered instance")
	ErrInvalidName         = errors.New("invalid property name")
	ErrPropertyEmpty       = errors.New("property has no value and no default")
	ErrConstraintViolation = errors.New("property value violates constraint")
	ErrValueExists         = errors.New("property value already exists in target store")
	ErrPhase               = errors.New("operation not allowed in current phase")
	ErrPhaseOrder          = fmt.Errorf("%w: phases must strictly increase", ErrPhase)
	ErrUnsupportedWrite    = errors.New("top store does not support writes")
	ErrStoreInit           = errors.New("store initialization failed")
	ErrStoreWrite          = errors.New("store write failed")
	ErrStorageFormat       = errors.New("stored value has unexpected format")
	ErrTransform           = errors.New("property value transform failed")
	ErrTypeMismatch        = errors.New("property value type mismatch")
)

// PropertyError records a failed registry operation on one property.
type PropertyError struct {
	Op   string // register, get, set, push, ...
	Name string // property name, may be empty for store operations
	Err  error
}

func (e *PropertyError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Name, e.Err)
}

func (e *PropertyError) Unwrap() error { return e.Err }

// PhaseError is returned when an operation runs in the wrong phase, or when
// Advance is asked to move backwards.
type PhaseError struct {
	Op       string
	Name     string
	Required Phase
	Current  Phase
	order    bool
}

func (e *PhaseError) Error() string {
	if e.order {
		return fmt.Sprintf("%s: cannot move from phase %s to phase %s", e.Op, e.Current, e.Required)
	}
	if e.Name != "" {
		return fmt.Sprintf("%s %q: requires phase %s, current phase is %s", e.Op, e.Name, e.Required, e.Current)
	}
	return fmt.Sprintf("%s: requires phase %s, current phase is %s", e.Op, e.Required, e.Current)
}

func (e *PhaseError) Unwrap() error {
	if e.order {
		return ErrPhaseOrder
	}
	return ErrPhase
}

// ValidationError collects the failures of the validation sweep run when
// the registry enters PhaseUse. A process must not continue past it.
type ValidationError struct {
	Errors []error
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0].Error()
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed, %d properties unresolved:\n  - %s", len(e.Errors), strings.Join(msgs, "\n  - "))
}

func (e *ValidationError) Unwrap() []error { return e.Errors }

// Properties returns the names of the properties that failed validation.
func (e *ValidationError) Properties() []string {
	names := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		var pe *PropertyError
		if errors.As(err, &pe) {
			names = append(names, pe.Name)
		}
	}
	return names
}

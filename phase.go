// FILE: scray/properties/phase.go
package properties

import "fmt"

// Phase is a stage of the registry lifecycle. Phases only move forward:
// PhaseRegister -> PhaseConfig -> PhaseUse.
type Phase int

const (
	// PhaseRegister is the initial phase, descriptors are declared
	PhaseRegister Phase = iota
	// PhaseConfig is the phase in which stores are pushed
	PhaseConfig
	// PhaseUse is the terminal phase, values may be read and written
	PhaseUse
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseRegister:
		return "register"
	case PhaseConfig:
		return "config"
	case PhaseUse:
		return "use"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Valid reports whether p is one of the defined phases.
func (p Phase) Valid() bool {
	return p >= PhaseRegister && p <= PhaseUse
}

// ParsePhase converts a phase name back into a Phase.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "register":
		return PhaseRegister, nil
	case "config":
		return PhaseConfig, nil
	case "use":
		return PhaseUse, nil
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

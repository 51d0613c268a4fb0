package constants

// Phase identifies which snapshot of a population a stored employee row belongs to.
type Phase string

const (
	// PhaseInitial is the population as generated, before any review cycle
	PhaseInitial Phase = "initial"

	// PhaseFinal is the population after the last simulated cycle
	PhaseFinal Phase = "final"
)

// Valid returns true if the phase is a recognized value.
func (p Phase) Valid() bool {
	switch p {
	case PhaseInitial, PhaseFinal:
		return true
	}
	return false
}

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

package checker

import (
	"errors"
	"fmt"
)

// FaultKind classifies where a verification run failed
type FaultKind string

const (
	// FaultInput indicates an empty or invalid claim body
	FaultInput FaultKind = "input"
	// FaultExtraction indicates image/document/URL extraction failed
	FaultExtraction FaultKind = "extraction"
	// FaultBackend indicates the reasoning or search backend was unreachable or erroring
	FaultBackend FaultKind = "backend"
	// FaultParse indicates the backend's final structured reply was not well-formed
	FaultParse FaultKind = "parse"
)

// Fault is a typed internal verification error. Faults never escape the
// checker boundary: the outermost Check* methods collapse them into a
// terminal Record with verdict ERROR.
type Fault struct {
	Kind    FaultKind
	Message string
	Cause   error
}

func (f *Fault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s fault: %s: %v", f.Kind, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s fault: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error {
	return f.Cause
}

// NewFault creates a new typed fault
func NewFault(kind FaultKind, message string, cause error) *Fault {
	return &Fault{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// KindOf returns the fault kind of an error, or an empty kind for plain errors
func KindOf(err error) FaultKind {
	var fault *Fault
	if errors.As(err, &fault) {
		return fault.Kind
	}
	return ""
}

// detail extracts the human-readable fault description used in ERROR conclusions
func detail(err error) string {
	var fault *Fault
	if errors.As(err, &fault) {
		if fault.Cause != nil {
			return fmt.Sprintf("%s: %v", fault.Message, fault.Cause)
		}
		return fault.Message
	}
	return err.Error()
}

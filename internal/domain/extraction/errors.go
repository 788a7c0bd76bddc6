package extraction

import (
	"errors"
	"fmt"
)

// ErrPatientNotFound is returned when the target of an extraction does not
// exist or is not a patient account.
var ErrPatientNotFound = errors.New("patient not found")

// Kind classifies extraction failures so the transport layer can pick the
// right status code and error envelope.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNoMedications Kind = "no_medications"
	KindMissingField  Kind = "missing_field"
	KindMalformed     Kind = "malformed_response"
)

type Error struct {
	Kind   Kind
	Detail string
	// Raw carries the model output that failed to parse, when available.
	Raw string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Package domain defines typed identifiers shared across modules.
//
// Typed IDs prevent accidentally passing one entity's UUID where another
// entity's is expected; the compiler rejects cross-type assignment.
package domain

import (
	"github.com/google/uuid"

	dErrors "medicus/pkg/domain-errors"
)

// PatientID identifies a patient record. Assigned by the store on first
// insert and never reused, even after the record is purged.
type PatientID uuid.UUID

// NewPatientID returns a fresh random PatientID.
func NewPatientID() PatientID {
	return PatientID(uuid.New())
}

// ParsePatientID parses the canonical string form of a PatientID. IDs
// must be valid, non-empty, non-nil UUIDs.
func ParsePatientID(s string) (PatientID, error) {
	if s == "" {
		return PatientID{}, dErrors.New(dErrors.CodeInvalidInput, "patient id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return PatientID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid patient id")
	}
	if u == uuid.Nil {
		return PatientID{}, dErrors.New(dErrors.CodeInvalidInput, "patient id must not be nil")
	}
	return PatientID(u), nil
}

func (p PatientID) String() string {
	return uuid.UUID(p).String()
}

// IsNil reports whether the ID is the zero UUID.
func (p PatientID) IsNil() bool {
	return uuid.UUID(p) == uuid.Nil
}

// MarshalText implements encoding.TextMarshaler so PatientID renders as a
// UUID string in JSON payloads.
func (p PatientID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PatientID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*p = PatientID(u)
	return nil
}

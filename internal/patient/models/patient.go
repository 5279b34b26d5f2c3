package models

import (
	"strings"
	"time"

	id "medicus/pkg/domain"
	dErrors "medicus/pkg/domain-errors"
)

// Patient is the aggregate root for a patient contact record.
//
// Invariants:
//   - FirstName is at least 2 characters after trimming
//   - LastName is at least 1 character after trimming
//   - Email, when present, is in canonical lowercase form (pkg/email)
//   - Phone, when present, is in canonical E.164 form (pkg/phone)
//   - Among active records, non-empty emails are pairwise distinct and
//     non-empty phones are pairwise distinct (store-enforced backstop)
//   - CreatedAt is immutable after construction
//   - Status transitions: active <-> deleted only; purge removes the
//     record entirely and its ID is never reused
type Patient struct {
	ID        id.PatientID  `json:"id"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Email     string        `json:"email,omitempty"`
	Phone     string        `json:"phone,omitempty"`
	Status    PatientStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewPatient constructs an active patient, validating name invariants.
// Email and phone must already be canonical; normalization happens in the
// service before construction. The zero PatientID is intentional: the
// store assigns the ID on first insert.
func NewPatient(firstName, lastName, email, phone string, now time.Time) (*Patient, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if err := ValidateFirstName(firstName); err != nil {
		return nil, err
	}
	if err := ValidateLastName(lastName); err != nil {
		return nil, err
	}
	return &Patient{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Phone:     phone,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ValidateFirstName enforces the minimum trimmed length of 2.
func ValidateFirstName(name string) error {
	if len(strings.TrimSpace(name)) < 2 {
		return dErrors.New(dErrors.CodeValidation, "first name must be at least 2 characters")
	}
	return nil
}

// ValidateLastName enforces a non-empty trimmed value.
func ValidateLastName(name string) error {
	if strings.TrimSpace(name) == "" {
		return dErrors.New(dErrors.CodeValidation, "last name must not be empty")
	}
	return nil
}

// IsActive reports whether the record is visible to normal operations.
func (p *Patient) IsActive() bool {
	return p.Status == StatusActive
}

// CanSoftDelete checks the active -> deleted transition. Use with
// ApplySoftDelete; the service treats an already-deleted record as an
// idempotent no-op rather than an error.
func (p *Patient) CanSoftDelete() error {
	if !p.Status.CanTransitionTo(StatusDeleted) {
		return dErrors.New(dErrors.CodeConflict, "patient is already deleted")
	}
	return nil
}

// ApplySoftDelete hides the record from normal reads. Call CanSoftDelete
// first to validate the transition.
func (p *Patient) ApplySoftDelete(now time.Time) {
	p.Status = StatusDeleted
	p.UpdatedAt = now
}

// CanRestore checks the deleted -> active transition.
func (p *Patient) CanRestore() error {
	if !p.Status.CanTransitionTo(StatusActive) {
		return dErrors.New(dErrors.CodeConflict, "patient is not deleted")
	}
	return nil
}

// ApplyRestore returns the record to normal visibility. Call CanRestore
// first to validate the transition.
func (p *Patient) ApplyRestore(now time.Time) {
	p.Status = StatusActive
	p.UpdatedAt = now
}

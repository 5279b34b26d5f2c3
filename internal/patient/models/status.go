package models

// PatientStatus is the lifecycle state of a patient record.
//
// Only two stored states exist: active records are visible to normal
// reads, deleted records are retained but hidden. The third lifecycle
// outcome, purge, is not a status: the record ceases to exist and its ID
// is never reassigned, so an illegal double-purge is unrepresentable.
type PatientStatus string

const (
	StatusActive  PatientStatus = "active"
	StatusDeleted PatientStatus = "deleted"
)

// Valid reports whether s is a known stored status.
func (s PatientStatus) Valid() bool {
	return s == StatusActive || s == StatusDeleted
}

// CanTransitionTo reports whether the lifecycle permits moving to target.
// active -> deleted (soft delete) and deleted -> active (restore) are the
// only legal stored transitions.
func (s PatientStatus) CanTransitionTo(target PatientStatus) bool {
	switch s {
	case StatusActive:
		return target == StatusDeleted
	case StatusDeleted:
		return target == StatusActive
	default:
		return false
	}
}

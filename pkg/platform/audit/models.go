// Package audit captures patient lifecycle events for compliance
// purposes. Events are emitted from domain logic, buffered by the
// publisher, and fanned out to a store (memory, or a Kafka sink in
// production).
package audit

import (
	"context"
	"time"
)

// Event is emitted from domain logic on key actions. Transport-agnostic
// so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	// Subject is the patient ID the action applies to.
	Subject string
	Action  string
	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string
	// ActorID tracks who performed the action when known (admin
	// operations such as restore and purge).
	ActorID string
}

// AuditEvent names the recorded patient lifecycle actions.
type AuditEvent string

const (
	EventPatientCreated     AuditEvent = "patient_created"
	EventPatientUpdated     AuditEvent = "patient_updated"
	EventPatientSoftDeleted AuditEvent = "patient_soft_deleted"
	EventPatientRestored    AuditEvent = "patient_restored"
	EventPatientPurged      AuditEvent = "patient_purged"
)

// Store persists audit events. Implementations must be safe for
// concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
}

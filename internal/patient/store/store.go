// Package store provides the record-store implementations behind the
// patient service: an in-memory store for development and tests, a
// PostgreSQL store for production, and a Redis read-through cache that
// decorates either.
//
// Stores report infrastructure facts as sentinel errors
// (pkg/platform/sentinel); translating them into the caller-facing
// taxonomy is the service's job.
package store

import (
	"context"

	"medicus/internal/patient/models"
	id "medicus/pkg/domain"
)

// Store is the patient record store contract. It mirrors the interface
// the service consumes; implementations here satisfy both structurally.
type Store interface {
	Insert(ctx context.Context, p *models.Patient) (*models.Patient, error)
	Update(ctx context.Context, p *models.Patient) error
	FindByID(ctx context.Context, patientID id.PatientID) (*models.Patient, error)
	FindAll(ctx context.Context) ([]*models.Patient, error)
	DeleteByID(ctx context.Context, patientID id.PatientID) error
	ExistsActiveByEmail(ctx context.Context, email string) (bool, error)
	ExistsActiveByPhone(ctx context.Context, phone string) (bool, error)
	ExistsActiveByEmailOrPhone(ctx context.Context, email, phone string) (bool, error)
	SearchActive(ctx context.Context, query string, offset, limit int) ([]*models.Patient, int, error)
}

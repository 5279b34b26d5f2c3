package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	patientmetrics "medicus/internal/patient/metrics"
	"medicus/internal/patient/models"
	"medicus/pkg/attrs"
	id "medicus/pkg/domain"
	dErrors "medicus/pkg/domain-errors"
	"medicus/pkg/email"
	"medicus/pkg/phone"
	"medicus/pkg/platform/audit"
	"medicus/pkg/platform/sentinel"
	"medicus/pkg/requestcontext"
)

// PatientStore is the record-store collaborator. Implementations speak
// sentinel errors (pkg/platform/sentinel); the service translates them
// into the caller-facing taxonomy. All true concurrency control (unique
// constraints, transaction isolation) lives behind this interface.
type PatientStore interface {
	// Insert persists a new record and assigns its ID. Returns
	// sentinel.ErrAlreadyUsed when an active-scoped uniqueness constraint
	// on email or phone rejects the insert.
	Insert(ctx context.Context, p *models.Patient) (*models.Patient, error)
	Update(ctx context.Context, p *models.Patient) error
	FindByID(ctx context.Context, patientID id.PatientID) (*models.Patient, error)
	FindAll(ctx context.Context) ([]*models.Patient, error)
	DeleteByID(ctx context.Context, patientID id.PatientID) error
	ExistsActiveByEmail(ctx context.Context, email string) (bool, error)
	ExistsActiveByPhone(ctx context.Context, phone string) (bool, error)
	ExistsActiveByEmailOrPhone(ctx context.Context, email, phone string) (bool, error)
	// SearchActive returns one page of active records whose first name or
	// phone contains the substring (case-insensitive), plus the total
	// match count.
	SearchActive(ctx context.Context, query string, offset, limit int) ([]*models.Patient, int, error)
}

// AuditPublisher records lifecycle events. Optional; a nil publisher
// disables audit emission.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// PatientService orchestrates normalization, validation, duplicate
// detection, and lifecycle transitions for patient records. It holds no
// caches or other shared mutable state; it is safe for concurrent use.
type PatientService struct {
	patients       PatientStore
	tx             StoreTx
	phones         *phone.Normalizer
	defaultRegion  phone.Region
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *patientmetrics.Metrics
	tracer         trace.Tracer
}

type serviceConfig struct {
	tx             StoreTx
	plan           phone.DialingPlan
	defaultRegion  phone.Region
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *patientmetrics.Metrics
}

// Option configures optional service collaborators.
type Option func(*serviceConfig)

// WithTx supplies a transaction runner so the duplicate check and insert
// of Create share one store transaction. Defaults to a pass-through
// runner for stores without transaction support.
func WithTx(tx StoreTx) Option {
	return func(c *serviceConfig) { c.tx = tx }
}

// WithDialingPlan replaces the seed dialing plan used for phone
// normalization.
func WithDialingPlan(plan phone.DialingPlan) Option {
	return func(c *serviceConfig) { c.plan = plan }
}

// WithDefaultRegion sets the region assumed for national phone numbers.
func WithDefaultRegion(region phone.Region) Option {
	return func(c *serviceConfig) { c.defaultRegion = region }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) { c.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(c *serviceConfig) { c.auditPublisher = publisher }
}

func WithMetrics(m *patientmetrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

// New constructs a PatientService over the given store.
func New(patients PatientStore, opts ...Option) *PatientService {
	cfg := &serviceConfig{defaultRegion: phone.DefaultRegion}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.tx == nil {
		cfg.tx = passthroughTx{}
	}
	return &PatientService{
		patients:       patients,
		tx:             cfg.tx,
		phones:         phone.NewNormalizer(cfg.plan),
		defaultRegion:  cfg.defaultRegion,
		logger:         cfg.logger,
		auditPublisher: cfg.auditPublisher,
		metrics:        cfg.metrics,
		tracer:         otel.Tracer("medicus/patient"),
	}
}

// CreatePatientInput carries the raw fields for Create. Email and phone
// are optional; empty means absent.
type CreatePatientInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// Create validates and normalizes the input, rejects duplicates among
// active records, and persists a new active patient.
//
// The duplicate-detection sequence is check-then-act: the per-field
// checks exist to produce attributable error messages, the combined
// email-or-phone check narrows the race window between them, and the
// store's active-scoped unique constraints are the enforcement of last
// resort (surfaced as sentinel.ErrAlreadyUsed from Insert).
func (s *PatientService) Create(ctx context.Context, input CreatePatientInput) (*models.Patient, error) {
	ctx, span := s.tracer.Start(ctx, "patient.Create")
	defer span.End()

	normEmail, err := email.Normalize(input.Email)
	if err != nil {
		return nil, err
	}
	normPhone, err := s.phones.Normalize(input.Phone, s.defaultRegion)
	if err != nil {
		return nil, err
	}

	p, err := models.NewPatient(input.FirstName, input.LastName, normEmail, normPhone, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	var created *models.Patient
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.checkDuplicates(txCtx, normEmail, normPhone); err != nil {
			return err
		}
		stored, err := s.patients.Insert(txCtx, p)
		if err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				// Constraint backstop caught a race the checks missed.
				return dErrors.New(dErrors.CodeDuplicate, "patient with this email or phone already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create patient")
		}
		created = stored
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, string(audit.EventPatientCreated), "patient_id", created.ID.String())
	if s.metrics != nil {
		s.metrics.PatientsCreated.Inc()
	}
	return created, nil
}

func (s *PatientService) checkDuplicates(ctx context.Context, normEmail, normPhone string) error {
	if normEmail != "" {
		exists, err := s.patients.ExistsActiveByEmail(ctx, normEmail)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email uniqueness")
		}
		if exists {
			return dErrors.Newf(dErrors.CodeDuplicate, "email already registered: %s", normEmail)
		}
	}
	if normPhone != "" {
		exists, err := s.patients.ExistsActiveByPhone(ctx, normPhone)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check phone uniqueness")
		}
		if exists {
			return dErrors.Newf(dErrors.CodeDuplicate, "phone already registered: %s", normPhone)
		}
	}
	if normEmail == "" && normPhone == "" {
		return nil
	}
	// Second guard: defends against a concurrent insert landing between
	// the two single-field checks above.
	exists, err := s.patients.ExistsActiveByEmailOrPhone(ctx, normEmail, normPhone)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check patient uniqueness")
	}
	if exists {
		return dErrors.New(dErrors.CodeDuplicate, "patient with this email or phone already exists")
	}
	return nil
}

// GetByID returns an active patient. Soft-deleted records are invisible
// to normal lookup and report not-found.
func (s *PatientService) GetByID(ctx context.Context, patientID id.PatientID) (*models.Patient, error) {
	ctx, span := s.tracer.Start(ctx, "patient.GetByID")
	defer span.End()

	p, err := s.findAnyByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, dErrors.New(dErrors.CodeNotFound, "patient not found")
	}
	return p, nil
}

// UpdatePatientInput carries partial updates. Nil fields are untouched;
// an empty string for email or phone clears the field.
type UpdatePatientInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
}

// Update applies the provided fields to an active patient. Any invalid
// field fails the whole update; nothing is persisted. Soft-deleted
// records are not updatable and report not-found, matching read
// visibility. Duplicate detection is not repeated on update.
func (s *PatientService) Update(ctx context.Context, patientID id.PatientID, input UpdatePatientInput) (*models.Patient, error) {
	ctx, span := s.tracer.Start(ctx, "patient.Update")
	defer span.End()

	p, err := s.findAnyByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, dErrors.New(dErrors.CodeNotFound, "patient not found")
	}

	if input.FirstName != nil {
		if err := models.ValidateFirstName(*input.FirstName); err != nil {
			return nil, err
		}
	}
	if input.LastName != nil {
		if err := models.ValidateLastName(*input.LastName); err != nil {
			return nil, err
		}
	}

	normEmail := p.Email
	if input.Email != nil {
		normEmail, err = email.Normalize(*input.Email)
		if err != nil {
			return nil, err
		}
	}
	normPhone := p.Phone
	if input.Phone != nil {
		normPhone, err = s.phones.Normalize(*input.Phone, s.defaultRegion)
		if err != nil {
			return nil, err
		}
	}

	if input.FirstName != nil {
		p.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		p.LastName = strings.TrimSpace(*input.LastName)
	}
	p.Email = normEmail
	p.Phone = normPhone
	p.UpdatedAt = requestcontext.Now(ctx)

	if err := s.patients.Update(ctx, p); err != nil {
		return nil, s.wrapStoreErr(err, "failed to update patient")
	}

	s.logAudit(ctx, string(audit.EventPatientUpdated), "patient_id", p.ID.String())
	return p, nil
}

// SoftDelete hides a patient from normal reads. Deleting an
// already-deleted record is an idempotent no-op.
func (s *PatientService) SoftDelete(ctx context.Context, patientID id.PatientID) error {
	ctx, span := s.tracer.Start(ctx, "patient.SoftDelete")
	defer span.End()

	p, err := s.findAnyByID(ctx, patientID)
	if err != nil {
		return err
	}
	if !p.IsActive() {
		return nil
	}

	p.ApplySoftDelete(requestcontext.Now(ctx))
	if err := s.patients.Update(ctx, p); err != nil {
		return s.wrapStoreErr(err, "failed to soft-delete patient")
	}

	s.logAudit(ctx, string(audit.EventPatientSoftDeleted), "patient_id", p.ID.String())
	if s.metrics != nil {
		s.metrics.PatientsSoftDeleted.Inc()
	}
	return nil
}

// Restore returns a soft-deleted patient to normal visibility. Restoring
// an active record is a conflict and leaves the record unmodified.
func (s *PatientService) Restore(ctx context.Context, patientID id.PatientID) (*models.Patient, error) {
	ctx, span := s.tracer.Start(ctx, "patient.Restore")
	defer span.End()

	p, err := s.findAnyByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := p.CanRestore(); err != nil {
		return nil, err
	}

	p.ApplyRestore(requestcontext.Now(ctx))
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, s.wrapStoreErr(err, "failed to restore patient")
	}

	s.logAudit(ctx, string(audit.EventPatientRestored), "patient_id", p.ID.String())
	if s.metrics != nil {
		s.metrics.PatientsRestored.Inc()
	}
	return p, nil
}

// Purge permanently removes a patient regardless of its lifecycle state.
// This is the only irreversible destructive operation; the ID is never
// reassigned.
func (s *PatientService) Purge(ctx context.Context, patientID id.PatientID) error {
	ctx, span := s.tracer.Start(ctx, "patient.Purge")
	defer span.End()

	if _, err := s.findAnyByID(ctx, patientID); err != nil {
		return err
	}
	if err := s.patients.DeleteByID(ctx, patientID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "patient not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to purge patient")
	}

	s.logAudit(ctx, string(audit.EventPatientPurged), "patient_id", patientID.String())
	if s.metrics != nil {
		s.metrics.PatientsPurged.Inc()
	}
	return nil
}

// ListAll returns patients ordered by creation time then ID. With
// includeDeleted false only active records are returned.
func (s *PatientService) ListAll(ctx context.Context, includeDeleted bool) ([]*models.Patient, error) {
	ctx, span := s.tracer.Start(ctx, "patient.ListAll")
	defer span.End()

	all, err := s.patients.FindAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list patients")
	}

	result := make([]*models.Patient, 0, len(all))
	for _, p := range all {
		if includeDeleted || p.IsActive() {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

// findAnyByID looks up a record regardless of lifecycle state,
// translating the store's not-found fact into the domain error.
func (s *PatientService) findAnyByID(ctx context.Context, patientID id.PatientID) (*models.Patient, error) {
	p, err := s.patients.FindByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "patient not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load patient")
	}
	return p, nil
}

func (s *PatientService) wrapStoreErr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "patient not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *PatientService) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Subject:   attrs.ExtractString(attributes, "patient_id"),
		Action:    event,
		RequestID: requestcontext.RequestID(ctx),
	})
}

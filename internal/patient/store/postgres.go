package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "embed"

	"github.com/jackc/pgx/v5/pgconn"

	"medicus/internal/patient/models"
	id "medicus/pkg/domain"
	"medicus/pkg/platform/sentinel"
	txcontext "medicus/pkg/platform/tx"
)

//go:embed schema.sql
var Schema string

const pgUniqueViolation = "23505"

// Postgres persists patients in PostgreSQL. Active-scoped contact
// uniqueness is enforced twice: the service runs explicit existence
// checks inside a transaction, and the partial unique indexes in
// schema.sql are the backstop against concurrent writers.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const patientColumns = "id, first_name, last_name, email, phone, status, created_at, updated_at"

func (s *Postgres) Insert(ctx context.Context, p *models.Patient) (*models.Patient, error) {
	stored := *p
	stored.ID = id.NewPatientID()

	_, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO patients (id, first_name, last_name, email, phone, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		stored.ID.String(), stored.FirstName, stored.LastName,
		nullable(stored.Email), nullable(stored.Phone),
		string(stored.Status), stored.CreatedAt, stored.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, sentinel.ErrAlreadyUsed
		}
		return nil, fmt.Errorf("insert patient: %w", err)
	}
	return &stored, nil
}

func (s *Postgres) Update(ctx context.Context, p *models.Patient) error {
	result, err := s.querier(ctx).ExecContext(ctx, `
		UPDATE patients
		SET first_name = $2, last_name = $3, email = $4, phone = $5, status = $6, updated_at = $7
		WHERE id = $1`,
		p.ID.String(), p.FirstName, p.LastName,
		nullable(p.Email), nullable(p.Phone),
		string(p.Status), p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update patient: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, patientID id.PatientID) (*models.Patient, error) {
	row := s.querier(ctx).QueryRowContext(ctx,
		"SELECT "+patientColumns+" FROM patients WHERE id = $1", patientID.String())
	p, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find patient: %w", err)
	}
	return p, nil
}

func (s *Postgres) FindAll(ctx context.Context) ([]*models.Patient, error) {
	rows, err := s.querier(ctx).QueryContext(ctx,
		"SELECT "+patientColumns+" FROM patients ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()
	return collectPatients(rows)
}

func (s *Postgres) DeleteByID(ctx context.Context, patientID id.PatientID) error {
	result, err := s.querier(ctx).ExecContext(ctx,
		"DELETE FROM patients WHERE id = $1", patientID.String())
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ExistsActiveByEmail(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, nil
	}
	return s.exists(ctx,
		"SELECT EXISTS (SELECT 1 FROM patients WHERE status = 'active' AND email = $1)", email)
}

func (s *Postgres) ExistsActiveByPhone(ctx context.Context, phone string) (bool, error) {
	if phone == "" {
		return false, nil
	}
	return s.exists(ctx,
		"SELECT EXISTS (SELECT 1 FROM patients WHERE status = 'active' AND phone = $1)", phone)
}

func (s *Postgres) ExistsActiveByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	if email == "" && phone == "" {
		return false, nil
	}
	return s.exists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM patients
			WHERE status = 'active'
			  AND ((email = $1 AND $1 <> '') OR (phone = $2 AND $2 <> ''))
		)`, email, phone)
}

func (s *Postgres) SearchActive(ctx context.Context, query string, offset, limit int) ([]*models.Patient, int, error) {
	pattern := "%" + escapeLike(query) + "%"
	q := s.querier(ctx)

	var total int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM patients
		WHERE status = 'active'
		  AND (first_name ILIKE $1 ESCAPE '\' OR phone ILIKE $1 ESCAPE '\')`,
		pattern,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count patient search: %w", err)
	}
	if total == 0 || offset >= total {
		return nil, total, nil
	}

	rows, err := q.QueryContext(ctx, `
		SELECT `+patientColumns+` FROM patients
		WHERE status = 'active'
		  AND (first_name ILIKE $1 ESCAPE '\' OR phone ILIKE $1 ESCAPE '\')
		ORDER BY created_at, id
		OFFSET $2 LIMIT $3`,
		pattern, offset, limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search patients: %w", err)
	}
	defer rows.Close()

	items, err := collectPatients(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Postgres) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := s.querier(ctx).QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("existence check: %w", err)
	}
	return found, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (*models.Patient, error) {
	var (
		p            models.Patient
		rawID        string
		email, phone sql.NullString
		status       string
	)
	err := row.Scan(&rawID, &p.FirstName, &p.LastName, &email, &phone, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	parsed, err := id.ParsePatientID(rawID)
	if err != nil {
		return nil, fmt.Errorf("scan patient id: %w", err)
	}
	p.ID = parsed
	p.Email = email.String
	p.Phone = phone.String
	p.Status = models.PatientStatus(status)
	return &p, nil
}

func collectPatients(rows *sql.Rows) ([]*models.Patient, error) {
	var patients []*models.Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	return patients, nil
}

// nullable maps the model's empty-string absence convention to NULL so
// the partial unique indexes never see two empty emails as a collision.
func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func escapeLike(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(v)
}

package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"medicus/internal/patient/models"
	id "medicus/pkg/domain"
	"medicus/pkg/platform/sentinel"
)

// InMemory is a thread-safe map-backed patient store. It enforces the
// same active-scoped uniqueness the PostgreSQL schema enforces with
// partial unique indexes, so service behavior is identical across
// backends. Records are copied on the way in and out; callers never
// share memory with the store.
type InMemory struct {
	mu       sync.RWMutex
	patients map[id.PatientID]models.Patient
}

func NewInMemory() *InMemory {
	return &InMemory{patients: make(map[id.PatientID]models.Patient)}
}

func (s *InMemory) Insert(_ context.Context, p *models.Patient) (*models.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Status == models.StatusActive && s.activeContactTaken(p.Email, p.Phone, id.PatientID{}) {
		return nil, sentinel.ErrAlreadyUsed
	}

	stored := *p
	stored.ID = id.NewPatientID()
	s.patients[stored.ID] = stored

	out := stored
	return &out, nil
}

func (s *InMemory) Update(_ context.Context, p *models.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.patients[p.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if p.Status == models.StatusActive && s.activeContactTaken(p.Email, p.Phone, p.ID) {
		return sentinel.ErrAlreadyUsed
	}

	stored := *p
	// CreatedAt is immutable; keep the original regardless of input.
	stored.CreatedAt = existing.CreatedAt
	s.patients[p.ID] = stored
	return nil
}

func (s *InMemory) FindByID(_ context.Context, patientID id.PatientID) (*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patients[patientID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := p
	return &out, nil
}

func (s *InMemory) FindAll(_ context.Context) ([]*models.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*models.Patient, 0, len(s.patients))
	for _, p := range s.patients {
		out := p
		all = append(all, &out)
	}
	sortByCreation(all)
	return all, nil
}

func (s *InMemory) DeleteByID(_ context.Context, patientID id.PatientID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.patients[patientID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.patients, patientID)
	return nil
}

func (s *InMemory) ExistsActiveByEmail(_ context.Context, email string) (bool, error) {
	if email == "" {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.patients {
		if p.Status == models.StatusActive && p.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemory) ExistsActiveByPhone(_ context.Context, phone string) (bool, error) {
	if phone == "" {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.patients {
		if p.Status == models.StatusActive && p.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemory) ExistsActiveByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	byEmail, err := s.ExistsActiveByEmail(ctx, email)
	if err != nil || byEmail {
		return byEmail, err
	}
	return s.ExistsActiveByPhone(ctx, phone)
}

func (s *InMemory) SearchActive(_ context.Context, query string, offset, limit int) ([]*models.Patient, int, error) {
	needle := strings.ToLower(query)

	s.mu.RLock()
	var matches []*models.Patient
	for _, p := range s.patients {
		if p.Status != models.StatusActive {
			continue
		}
		if strings.Contains(strings.ToLower(p.FirstName), needle) ||
			strings.Contains(strings.ToLower(p.Phone), needle) {
			out := p
			matches = append(matches, &out)
		}
	}
	s.mu.RUnlock()

	sortByCreation(matches)
	total := len(matches)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matches[offset:end], total, nil
}

// activeContactTaken reports whether another active record already holds
// the email or phone. Caller must hold the lock.
func (s *InMemory) activeContactTaken(email, phone string, self id.PatientID) bool {
	for existingID, existing := range s.patients {
		if existingID == self || existing.Status != models.StatusActive {
			continue
		}
		if email != "" && existing.Email == email {
			return true
		}
		if phone != "" && existing.Phone == phone {
			return true
		}
	}
	return false
}

func sortByCreation(patients []*models.Patient) {
	sort.Slice(patients, func(i, j int) bool {
		if !patients[i].CreatedAt.Equal(patients[j].CreatedAt) {
			return patients[i].CreatedAt.Before(patients[j].CreatedAt)
		}
		return patients[i].ID.String() < patients[j].ID.String()
	})
}

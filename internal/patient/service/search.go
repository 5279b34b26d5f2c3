package service

import (
	"context"
	"strings"
	"time"

	"medicus/internal/patient/models"
	dErrors "medicus/pkg/domain-errors"
)

// Search paging bounds. The page size cap is a hard limit against
// unbounded responses.
const (
	MinPageSize = 1
	MaxPageSize = 100
)

// Page is one page of search results with pagination metadata.
type Page struct {
	Items      []*models.Patient `json:"items"`
	PageNumber int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalCount int               `json:"total_count"`
}

// Search performs a case-insensitive substring match against first name
// or phone over active records only.
//
// Inputs are clamped rather than rejected: page < 0 becomes 0, pageSize
// is forced into [MinPageSize, MaxPageSize]. A blank query returns an
// empty page without consulting the store.
func (s *PatientService) Search(ctx context.Context, query string, page, pageSize int) (*Page, error) {
	ctx, span := s.tracer.Start(ctx, "patient.Search")
	defer span.End()

	if page < 0 {
		page = 0
	}
	if pageSize < MinPageSize {
		pageSize = MinPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return &Page{Items: []*models.Patient{}, PageNumber: page, PageSize: pageSize}, nil
	}

	start := time.Now()
	items, total, err := s.patients.SearchActive(ctx, query, page*pageSize, pageSize)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to search patients")
	}
	if s.metrics != nil {
		s.metrics.ObserveSearch(start)
	}
	if items == nil {
		items = []*models.Patient{}
	}
	return &Page{Items: items, PageNumber: page, PageSize: pageSize, TotalCount: total}, nil
}

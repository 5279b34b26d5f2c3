package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"medicus/internal/patient/models"
	"medicus/internal/patient/service"
	"medicus/internal/platform/metrics"
	"medicus/internal/platform/middleware"
	"medicus/internal/transport/http/shared"
	id "medicus/pkg/domain"
	dErrors "medicus/pkg/domain-errors"
)

// Service defines the patient operations the HTTP layer depends on.
type Service interface {
	Create(ctx context.Context, input service.CreatePatientInput) (*models.Patient, error)
	GetByID(ctx context.Context, patientID id.PatientID) (*models.Patient, error)
	Update(ctx context.Context, patientID id.PatientID, input service.UpdatePatientInput) (*models.Patient, error)
	SoftDelete(ctx context.Context, patientID id.PatientID) error
	Restore(ctx context.Context, patientID id.PatientID) (*models.Patient, error)
	Purge(ctx context.Context, patientID id.PatientID) error
	ListAll(ctx context.Context, includeDeleted bool) ([]*models.Patient, error)
	Search(ctx context.Context, query string, page, pageSize int) (*service.Page, error)
}

// Handler serves the patient endpoints.
type Handler struct {
	logger     *slog.Logger
	patients   Service
	metrics    *metrics.Metrics
	adminToken string
}

// New creates a patient Handler.
func New(patients Service, logger *slog.Logger, metrics *metrics.Metrics, adminToken string) *Handler {
	return &Handler{
		logger:     logger,
		patients:   patients,
		metrics:    metrics,
		adminToken: adminToken,
	}
}

// Register mounts the patient routes on the given router.
func (h *Handler) Register(r chi.Router) {
	patientRouter := chi.NewRouter()
	patientRouter.Use(middleware.Recovery(h.logger))
	patientRouter.Use(middleware.RequestID)
	patientRouter.Use(middleware.RequestTime)
	patientRouter.Use(middleware.Logger(h.logger))
	patientRouter.Use(middleware.Timeout(30 * time.Second))
	patientRouter.Use(middleware.ContentTypeJSON)
	patientRouter.Use(middleware.LatencyMiddleware(h.metrics))

	patientRouter.Post("/patients", h.handleCreate)
	patientRouter.Get("/patients/search", h.handleSearch)
	patientRouter.Get("/patients/{patientID}", h.handleGet)
	patientRouter.Put("/patients/{patientID}", h.handleUpdate)
	patientRouter.Delete("/patients/{patientID}", h.handleSoftDelete)

	patientRouter.Route("/admin", func(admin chi.Router) {
		admin.Use(middleware.RequireAdmin(h.adminToken, h.logger))
		admin.Get("/patients", h.handleListAll)
		admin.Post("/patients/{patientID}/restore", h.handleRestore)
		admin.Delete("/patients/{patientID}/purge", h.handlePurge)
	})

	r.Mount("/api/v1", patientRouter)
}

type createPatientRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type updatePatientRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
}

// patientResponse is the public record shape. Lifecycle status is an
// administrative detail; only the admin endpoints expose it (they return
// the model directly).
type patientResponse struct {
	ID        id.PatientID `json:"id"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Email     string       `json:"email,omitempty"`
	Phone     string       `json:"phone,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type searchResponse struct {
	Items      []patientResponse `json:"items"`
	PageNumber int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalCount int               `json:"total_count"`
}

func toResponse(p *models.Patient) patientResponse {
	return patientResponse{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warn(ctx, "invalid create patient request", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	p, err := h.patients.Create(ctx, service.CreatePatientInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "failed to create patient", err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toResponse(p))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	patientID, ok := h.patientID(w, r)
	if !ok {
		return
	}

	p, err := h.patients.GetByID(ctx, patientID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to get patient", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	patientID, ok := h.patientID(w, r)
	if !ok {
		return
	}

	var req updatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.warn(ctx, "invalid update patient request", err)
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	p, err := h.patients.Update(ctx, patientID, service.UpdatePatientInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
	})
	if err != nil {
		h.writeServiceError(ctx, w, "failed to update patient", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) handleSoftDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	patientID, ok := h.patientID(w, r)
	if !ok {
		return
	}

	if err := h.patients.SoftDelete(ctx, patientID); err != nil {
		h.writeServiceError(ctx, w, "failed to delete patient", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query().Get("q")
	page := queryInt(r, "page", 0)
	pageSize := queryInt(r, "page_size", 20)

	result, err := h.patients.Search(ctx, query, page, pageSize)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to search patients", err)
		return
	}
	items := make([]patientResponse, 0, len(result.Items))
	for _, p := range result.Items {
		items = append(items, toResponse(p))
	}
	shared.WriteJSON(w, http.StatusOK, searchResponse{
		Items:      items,
		PageNumber: result.PageNumber,
		PageSize:   result.PageSize,
		TotalCount: result.TotalCount,
	})
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	includeDeleted := r.URL.Query().Get("include_deleted") == "true"

	patients, err := h.patients.ListAll(ctx, includeDeleted)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list patients", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, patients)
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	patientID, ok := h.patientID(w, r)
	if !ok {
		return
	}

	p, err := h.patients.Restore(ctx, patientID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to restore patient", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handlePurge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	patientID, ok := h.patientID(w, r)
	if !ok {
		return
	}

	if err := h.patients.Purge(ctx, patientID); err != nil {
		h.writeServiceError(ctx, w, "failed to purge patient", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// patientID parses the path parameter, writing a 400 on failure.
func (h *Handler) patientID(w http.ResponseWriter, r *http.Request) (id.PatientID, bool) {
	raw := chi.URLParam(r, "patientID")
	patientID, err := id.ParsePatientID(raw)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid patient id"))
		return id.PatientID{}, false
	}
	return patientID, true
}

// writeServiceError logs failures at a severity matching the error class
// and writes the translated response.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
	} else {
		h.warn(ctx, msg, err)
	}
	shared.WriteError(w, err)
}

func (h *Handler) warn(ctx context.Context, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err.Error(),
	)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

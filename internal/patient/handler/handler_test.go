package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medicus/internal/patient/service"
	"medicus/internal/patient/store"
)

const testAdminToken = "test-admin-token"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(store.NewInMemory(), service.WithLogger(logger))
	h := New(svc, logger, nil, testAdminToken)

	r := chi.NewRouter()
	h.Register(r)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doAdmin(t *testing.T, router http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-Admin-Token", testAdminToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createPatient(t *testing.T, router http.Handler, first, email, phone string) map[string]any {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/v1/patients", map[string]string{
		"first_name": first,
		"last_name":  "Tester",
		"email":      email,
		"phone":      phone,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreatePatientNormalization(t *testing.T) {
	router := newTestRouter(t)

	resp := createPatient(t, router, "Asha", " Asha@Example.COM ", "091234-56789")
	assert.Equal(t, "Asha", resp["first_name"])
	assert.Equal(t, "asha@example.com", resp["email"])
	assert.Equal(t, "+919123456789", resp["phone"])
	assert.NotEmpty(t, resp["id"])

	_, present := resp["status"]
	assert.False(t, present, "lifecycle status is admin-only")
}

func TestCreatePatientFailures(t *testing.T) {
	router := newTestRouter(t)

	t.Run("malformed body is a 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid email is a 400 with the code named", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/api/v1/patients", map[string]string{
			"first_name": "Asha", "last_name": "Rao", "email": "broken@",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "invalid_format", resp["error"])
	})

	t.Run("duplicate email is a 409", func(t *testing.T) {
		createPatient(t, router, "First", "dup@example.com", "")
		w := doJSON(t, router, http.MethodPost, "/api/v1/patients", map[string]string{
			"first_name": "Second", "last_name": "Person", "email": "dup@example.com",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("non-JSON content type is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", bytes.NewReader([]byte("x=1")))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})
}

func TestGetPatient(t *testing.T) {
	router := newTestRouter(t)
	created := createPatient(t, router, "Asha", "asha@example.com", "")
	patientID := created["id"].(string)

	t.Run("returns the record", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/patients/"+patientID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, patientID, resp["id"])
	})

	t.Run("unknown id is a 404", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/patients/2c4e9f34-0000-0000-0000-000000000000", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id is a 400", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/patients/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpdatePatient(t *testing.T) {
	router := newTestRouter(t)
	created := createPatient(t, router, "Asha", "asha@example.com", "")
	patientID := created["id"].(string)

	t.Run("partial update touches only sent fields", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPut, "/api/v1/patients/"+patientID, map[string]string{
			"first_name": "Ashanti",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Ashanti", resp["first_name"])
		assert.Equal(t, "asha@example.com", resp["email"])
	})

	t.Run("explicit empty string clears a contact", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPut, "/api/v1/patients/"+patientID, map[string]string{
			"email": "",
		})
		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		_, present := resp["email"]
		assert.False(t, present, "cleared email should be omitted from the response")
	})

	t.Run("invalid phone is a 400", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPut, "/api/v1/patients/"+patientID, map[string]string{
			"phone": "123-ABC",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDeleteAndAdminLifecycle(t *testing.T) {
	router := newTestRouter(t)
	created := createPatient(t, router, "Asha", "asha@example.com", "")
	patientID := created["id"].(string)

	t.Run("soft delete returns 204 and hides the record", func(t *testing.T) {
		w := doJSON(t, router, http.MethodDelete, "/api/v1/patients/"+patientID, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = doJSON(t, router, http.MethodDelete, "/api/v1/patients/"+patientID, nil)
		assert.Equal(t, http.StatusNoContent, w.Code, "soft delete is idempotent")

		w = doJSON(t, router, http.MethodGet, "/api/v1/patients/"+patientID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("admin endpoints reject missing token", func(t *testing.T) {
		for _, probe := range []struct{ method, path string }{
			{http.MethodGet, "/api/v1/admin/patients"},
			{http.MethodPost, "/api/v1/admin/patients/" + patientID + "/restore"},
			{http.MethodDelete, "/api/v1/admin/patients/" + patientID + "/purge"},
		} {
			w := doJSON(t, router, probe.method, probe.path, nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code, probe.path)
		}
	})

	t.Run("admin list shows deleted records on request", func(t *testing.T) {
		w := doAdmin(t, router, http.MethodGet, "/api/v1/admin/patients")
		require.Equal(t, http.StatusOK, w.Code)
		var visible []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &visible))
		assert.Empty(t, visible)

		w = doAdmin(t, router, http.MethodGet, "/api/v1/admin/patients?include_deleted=true")
		require.Equal(t, http.StatusOK, w.Code)
		var all []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
		require.Len(t, all, 1)
		assert.Equal(t, "deleted", all[0]["status"])
	})

	t.Run("restore brings the record back", func(t *testing.T) {
		w := doAdmin(t, router, http.MethodPost, "/api/v1/admin/patients/"+patientID+"/restore")
		require.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, router, http.MethodGet, "/api/v1/patients/"+patientID, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("restoring an active record is a 409", func(t *testing.T) {
		w := doAdmin(t, router, http.MethodPost, "/api/v1/admin/patients/"+patientID+"/restore")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("purge removes permanently", func(t *testing.T) {
		w := doAdmin(t, router, http.MethodDelete, "/api/v1/admin/patients/"+patientID+"/purge")
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = doAdmin(t, router, http.MethodDelete, "/api/v1/admin/patients/"+patientID+"/purge")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSearchPatients(t *testing.T) {
	router := newTestRouter(t)
	for i := 0; i < 5; i++ {
		createPatient(t, router, fmt.Sprintf("Anna%d", i), "", fmt.Sprintf("91234567%02d", i))
	}

	t.Run("returns matches with pagination metadata", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/patients/search?q=anna&page=0&page_size=2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var page map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		assert.Equal(t, float64(5), page["total_count"])
		assert.Len(t, page["items"], 2)
	})

	t.Run("clamps out-of-range paging values", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/patients/search?q=anna&page=-3&page_size=0", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var page map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		assert.Equal(t, float64(0), page["page"])
		assert.Equal(t, float64(1), page["page_size"])
	})

	t.Run("blank query returns an empty page", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/api/v1/patients/search", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var page map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		assert.Equal(t, float64(0), page["total_count"])
		assert.Len(t, page["items"], 0)
	})
}

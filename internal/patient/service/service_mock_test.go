package service_test

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks PatientStore,AuditPublisher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"medicus/internal/patient/models"
	"medicus/internal/patient/service"
	"medicus/internal/patient/service/mocks"
	id "medicus/pkg/domain"
	dErrors "medicus/pkg/domain-errors"
	"medicus/pkg/platform/audit"
	"medicus/pkg/platform/sentinel"
)

func activePatient(patientID id.PatientID) *models.Patient {
	return &models.Patient{ID: patientID, FirstName: "Asha", LastName: "Rao", Status: models.StatusActive}
}

// TestCreate_SecondGuardCatchesRace simulates a concurrent insert landing
// between the per-field checks and the combined check.
func TestCreate_SecondGuardCatchesRace(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockPatientStore(ctrl)
	svc := service.New(store)

	ctx := context.Background()
	store.EXPECT().ExistsActiveByEmail(gomock.Any(), "race@example.com").Return(false, nil)
	store.EXPECT().ExistsActiveByEmailOrPhone(gomock.Any(), "race@example.com", "").Return(true, nil)

	_, err := svc.Create(ctx, service.CreatePatientInput{
		FirstName: "Race", LastName: "Condition", Email: "race@example.com",
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDuplicate))
}

// TestCreate_ConstraintBackstop verifies the store's unique constraint
// rejection surfaces as a duplicate error even when the checks passed.
func TestCreate_ConstraintBackstop(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockPatientStore(ctrl)
	svc := service.New(store)

	store.EXPECT().ExistsActiveByPhone(gomock.Any(), "+919123456789").Return(false, nil)
	store.EXPECT().ExistsActiveByEmailOrPhone(gomock.Any(), "", "+919123456789").Return(false, nil)
	store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrAlreadyUsed)

	_, err := svc.Create(context.Background(), service.CreatePatientInput{
		FirstName: "Race", LastName: "Condition", Phone: "9123456789",
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDuplicate))
}

// TestCreate_StoreFailureIsInternal verifies unexpected store errors map
// to the internal code without leaking sentinel types.
func TestCreate_StoreFailureIsInternal(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockPatientStore(ctrl)
	svc := service.New(store)

	boom := errors.New("connection reset")
	store.EXPECT().ExistsActiveByEmail(gomock.Any(), "a@example.com").Return(false, boom)

	_, err := svc.Create(context.Background(), service.CreatePatientInput{
		FirstName: "Asha", LastName: "Rao", Email: "a@example.com",
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	assert.ErrorIs(t, err, boom)
}

// TestCreate_InvalidInputNeverTouchesStore verifies validation failures
// short-circuit before any store traffic.
func TestCreate_InvalidInputNeverTouchesStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockPatientStore(ctrl)
	svc := service.New(store)

	_, err := svc.Create(context.Background(), service.CreatePatientInput{
		FirstName: "Asha", LastName: "Rao", Email: "broken@",
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidFormat))
}

// TestSearch_BlankQuerySkipsStore verifies the blank-query short circuit
// performs no store call.
func TestSearch_BlankQuerySkipsStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockPatientStore(ctrl)
	svc := service.New(store)

	page, err := svc.Search(context.Background(), "   ", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.TotalCount)
}

// TestPurge_AuditFailureDoesNotFailOperation verifies audit emission is
// best effort.
func TestPurge_AuditFailureDoesNotFailOperation(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockPatientStore(ctrl)
	auditPub := mocks.NewMockAuditPublisher(ctrl)
	svc := service.New(store, service.WithAuditPublisher(auditPub))

	patientID := id.NewPatientID()
	store.EXPECT().FindByID(gomock.Any(), patientID).Return(activePatient(patientID), nil)
	store.EXPECT().DeleteByID(gomock.Any(), patientID).Return(nil)
	auditPub.EXPECT().Emit(gomock.Any(), gomock.AssignableToTypeOf(audit.Event{})).Return(errors.New("broker down"))

	require.NoError(t, svc.Purge(context.Background(), patientID))
}

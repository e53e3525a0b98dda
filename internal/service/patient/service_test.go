package patient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medscribe/scribe-api/internal/model"
	"github.com/medscribe/scribe-api/internal/store"
	"github.com/medscribe/scribe-api/pkg/logger"
	"github.com/medscribe/scribe-api/pkg/recordstore"
)

func ts(day int) time.Time {
	return time.Date(2025, time.April, day, 10, 0, 0, 0, time.UTC)
}

func TestAggregatePrecedence(t *testing.T) {
	patients := []model.Patient{
		{ID: 1, FullName: "Riya Sharma"},
		{ID: 2, FullName: "Arjun Mehta"},
		{ID: 3, FullName: "Priya Patel"},
		{ID: 4, FullName: "Vikram Rao"},
	}
	consultations := []model.Consultation{
		// Patient 1: Processing beats Signed.
		{ID: 10, PatientID: 1, Status: model.StatusInProgress, StartedAt: ts(2)},
		{ID: 11, PatientID: 1, Status: model.StatusFinal, StartedAt: ts(1)},
		// Patient 2: Review beats Signed.
		{ID: 12, PatientID: 2, Status: model.StatusDraft, StartedAt: ts(3)},
		{ID: 13, PatientID: 2, Status: model.StatusSigned, StartedAt: ts(4)},
		// Patient 3: all signed.
		{ID: 14, PatientID: 3, Status: model.StatusFinal, StartedAt: ts(5)},
	}

	rollups := Aggregate(patients, consultations)
	require.Len(t, rollups, 4)

	byID := make(map[int]model.EnrichedPatient)
	for _, r := range rollups {
		byID[r.ID] = r
	}

	assert.Equal(t, model.NoteStatusProcessing, byID[1].AggregateStatus)
	assert.Equal(t, model.NoteStatusReview, byID[2].AggregateStatus)
	assert.Equal(t, model.NoteStatusSigned, byID[3].AggregateStatus)
	assert.Equal(t, model.NoteStatusNone, byID[4].AggregateStatus)
}

func TestAggregateCountsAndLastVisit(t *testing.T) {
	patients := []model.Patient{{ID: 1, FullName: "Riya Sharma"}, {ID: 2, FullName: "Arjun Mehta"}}
	consultations := []model.Consultation{
		{ID: 10, PatientID: 1, Status: model.StatusFinal, StartedAt: ts(1)},
		{ID: 11, PatientID: 1, Status: model.StatusFinal, StartedAt: ts(9)},
		{ID: 12, PatientID: 1, Status: model.StatusFinal, StartedAt: ts(4)},
	}

	rollups := Aggregate(patients, consultations)
	byID := make(map[int]model.EnrichedPatient)
	for _, r := range rollups {
		byID[r.ID] = r
	}

	assert.Equal(t, 3, byID[1].ConsultCount)
	require.NotNil(t, byID[1].LastVisit)
	assert.Equal(t, ts(9), *byID[1].LastVisit)

	assert.Equal(t, 0, byID[2].ConsultCount)
	assert.Nil(t, byID[2].LastVisit)
}

type fakePatientStore struct {
	patients map[int]model.Patient
	nextID   int
}

func (fs *fakePatientStore) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/patients":
			list := make([]model.Patient, 0, len(fs.patients))
			for _, p := range fs.patients {
				list = append(list, p)
			}
			json.NewEncoder(w).Encode(list)
		case r.Method == http.MethodGet && r.URL.Path == "/consultations":
			json.NewEncoder(w).Encode([]model.Consultation{})
		case r.Method == http.MethodPost && r.URL.Path == "/patients":
			var p model.Patient
			json.NewDecoder(r.Body).Decode(&p)
			p.ID = fs.nextID
			fs.nextID++
			fs.patients[p.ID] = p
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(p)
		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/patients/"):
			id, _ := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/patients/"))
			delete(fs.patients, id)
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}
}

func newTestService(t *testing.T, fs *fakePatientStore) *Service {
	t.Helper()
	srv := httptest.NewServer(fs.handler())
	t.Cleanup(srv.Close)
	nop := zerolog.Nop()
	client := recordstore.NewClient(recordstore.Config{BaseURL: srv.URL}, &nop, nil)
	return NewService(store.New(client, time.Minute), nil, logger.NewLogger(nil))
}

func TestCreatePatient(t *testing.T) {
	fs := &fakePatientStore{patients: map[int]model.Patient{}, nextID: 1}
	svc := newTestService(t, fs)

	created, err := svc.CreatePatient(context.Background(), &model.CreatePatientRequest{
		FullName: "  Riya Sharma  ",
		Phone:    "9876543210",
		Gender:   "Female",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created.ID)
	assert.Equal(t, "Riya Sharma", created.FullName)
}

func TestCreatePatientRequiresName(t *testing.T) {
	fs := &fakePatientStore{patients: map[int]model.Patient{}, nextID: 1}
	svc := newTestService(t, fs)

	_, err := svc.CreatePatient(context.Background(), &model.CreatePatientRequest{FullName: "   "})
	assert.Error(t, err)
	assert.Empty(t, fs.patients)
}

func TestDeletePatientDoesNotCascade(t *testing.T) {
	fs := &fakePatientStore{patients: map[int]model.Patient{1: {ID: 1, FullName: "Riya Sharma"}}, nextID: 2}
	svc := newTestService(t, fs)

	require.NoError(t, svc.DeletePatient(context.Background(), 1))
	assert.Empty(t, fs.patients)

	err := svc.DeletePatient(context.Background(), 1)
	assert.Error(t, err)
}

package recordstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePatient struct {
	ID       int    `json:"id"`
	FullName string `json:"fullName"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	nop := zerolog.Nop()
	return NewClient(Config{BaseURL: srv.URL}, &nop, nil)
}

func TestList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/patients", r.URL.Path)
		json.NewEncoder(w).Encode([]fakePatient{{ID: 1, FullName: "Riya Sharma"}})
	})

	patients, err := List[fakePatient](context.Background(), c, CollectionPatients)
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, "Riya Sharma", patients[0].FullName)
}

func TestCreateAssignsID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var in fakePatient
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		in.ID = 42
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(in)
	})

	created, err := Create[fakePatient](context.Background(), c, CollectionPatients, fakePatient{FullName: "Arjun Mehta"})
	require.NoError(t, err)
	assert.Equal(t, 42, created.ID)
	assert.Equal(t, "Arjun Mehta", created.FullName)
}

func TestPatchTargetsRecord(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/consultations/7", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{"id": 7, "status": "Signed"})
	})

	out, err := Patch[map[string]interface{}](context.Background(), c, CollectionConsultations, 7, map[string]string{"status": "Signed"})
	require.NoError(t, err)
	assert.Equal(t, "Signed", (*out)["status"])
}

func TestDelete(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/patients/3", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	err := Delete(context.Background(), c, CollectionPatients, 3)
	assert.NoError(t, err)
}

func TestNon2xxReturnsStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := List[fakePatient](context.Background(), c, CollectionPatients)
	require.Error(t, err)

	statusErr, ok := err.(*StatusError)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	hits := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.NotFound(w, r)
	})

	// Well past the breaker's failure threshold: every request must
	// still reach the store and come back as a 404.
	for i := 0; i < 8; i++ {
		_, err := Get[fakePatient](context.Background(), c, CollectionPatients, 1)
		statusErr, ok := err.(*StatusError)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	}
	assert.Equal(t, 8, hits)
}

func TestServerErrorsTripBreaker(t *testing.T) {
	hits := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	for i := 0; i < 8; i++ {
		_, err := List[fakePatient](context.Background(), c, CollectionPatients)
		require.Error(t, err)
	}

	// The breaker opens after five consecutive 5xx failures and rejects
	// the rest without touching the store.
	assert.Equal(t, 5, hits)
}

package capture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medscribe/scribe-api/internal/capture"
	"github.com/medscribe/scribe-api/internal/model"
	consultationsvc "github.com/medscribe/scribe-api/internal/service/consultation"
	patientsvc "github.com/medscribe/scribe-api/internal/service/patient"
	"github.com/medscribe/scribe-api/internal/store"
	"github.com/medscribe/scribe-api/pkg/logger"
	"github.com/medscribe/scribe-api/pkg/recordstore"
)

// instantGenerator completes synchronously on Start, so handler tests
// never wait on timers.
type instantGenerator struct{}

func (instantGenerator) Start(artifact capture.Artifact, patientName string, onProgress func(int), onComplete func(model.GeneratedNote)) func() {
	onProgress(100)
	onComplete(capture.FabricateNote(artifact, patientName))
	return func() {}
}

type env struct {
	engine  *gin.Engine
	created *int
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	created := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/patients":
			json.NewEncoder(w).Encode([]model.Patient{{ID: 1, FullName: "Riya Sharma"}})
		case r.Method == http.MethodGet && r.URL.Path == "/consultations":
			json.NewEncoder(w).Encode([]model.Consultation{})
		case r.Method == http.MethodPost && r.URL.Path == "/consultations":
			var c model.Consultation
			json.NewDecoder(r.Body).Decode(&c)
			c.ID = 100 + created
			created++
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(c)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	nop := zerolog.Nop()
	client := recordstore.NewClient(recordstore.Config{BaseURL: srv.URL}, &nop, nil)
	snapshots := store.New(client, time.Minute)
	log := logger.NewLogger(nil)

	patientSvc := patientsvc.NewService(snapshots, nil, log)
	consultationSvc := consultationsvc.NewService(snapshots, nil, nil, log)
	manager := capture.NewManager(capture.NewMemoryRecorder, instantGenerator{}, nil, log)

	engine := gin.New()
	NewHandler(manager, patientSvc, consultationSvc, log).RegisterRoutes(engine.Group("/api/v1"))
	return &env{engine: engine, created: &created}
}

func (e *env) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var envelope map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	}
	return w, envelope
}

func sessionID(t *testing.T, envelope map[string]interface{}) string {
	t.Helper()
	data, ok := envelope["data"].(map[string]interface{})
	require.True(t, ok)
	id, ok := data["id"].(string)
	require.True(t, ok)
	return id
}

func TestUploadFlowThroughSignOff(t *testing.T) {
	e := newEnv(t)

	w, envelope := e.do(t, http.MethodPost, "/api/v1/capture/sessions",
		model.CreateSessionRequest{PatientID: 1, Mode: "upload"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := sessionID(t, envelope)

	w, envelope = e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/capture/sessions/%s/upload", id),
		model.UploadFileRequest{FileName: "visit-audio.mp3"})
	require.Equal(t, http.StatusOK, w.Code)
	data := envelope["data"].(map[string]interface{})
	assert.Equal(t, "ready", data["stage"])

	w, envelope = e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/capture/sessions/%s/generate", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	// The instant generator completed synchronously.
	w, envelope = e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/capture/sessions/%s", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = envelope["data"].(map[string]interface{})
	assert.Equal(t, "generated", data["stage"])
	assert.EqualValues(t, 100, data["processingProgress"])

	w, envelope = e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/capture/sessions/%s/signoff", id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, *e.created)
	data = envelope["data"].(map[string]interface{})
	assert.Equal(t, "Signed", data["status"])

	// Session torn down after sign-off.
	w, _ = e.do(t, http.MethodGet, fmt.Sprintf("/api/v1/capture/sessions/%s", id), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateWithoutArtifactConflicts(t *testing.T) {
	e := newEnv(t)

	w, envelope := e.do(t, http.MethodPost, "/api/v1/capture/sessions",
		model.CreateSessionRequest{PatientID: 1, Mode: "record"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := sessionID(t, envelope)

	w, _ = e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/capture/sessions/%s/generate", id), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateSessionUnknownPatient(t *testing.T) {
	e := newEnv(t)

	w, _ := e.do(t, http.MethodPost, "/api/v1/capture/sessions",
		model.CreateSessionRequest{PatientID: 99, Mode: "record"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeepLinkCreateWithAutostart(t *testing.T) {
	e := newEnv(t)

	w, envelope := e.do(t, http.MethodPost, "/api/v1/capture/sessions?patientId=1&mode=record&autostart=1", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	data := envelope["data"].(map[string]interface{})
	assert.Equal(t, "recording", data["stage"])

	id := sessionID(t, envelope)
	w, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/capture/sessions/%s", id), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnsupportedUploadRejected(t *testing.T) {
	e := newEnv(t)

	_, envelope := e.do(t, http.MethodPost, "/api/v1/capture/sessions",
		model.CreateSessionRequest{PatientID: 1, Mode: "upload"})
	id := sessionID(t, envelope)

	w, _ := e.do(t, http.MethodPost, fmt.Sprintf("/api/v1/capture/sessions/%s/upload", id),
		model.UploadFileRequest{FileName: "notes.pdf"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

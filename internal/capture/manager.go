package capture

import (
	"sync"

	"github.com/google/uuid"

	"github.com/medscribe/scribe-api/internal/model"
	"github.com/medscribe/scribe-api/pkg/logger"
	"github.com/medscribe/scribe-api/pkg/metrics"
)

// Manager owns the live capture sessions, at most one per patient.
// Sessions for different patients are fully independent; starting a
// new flow for a patient that already has one resets and replaces it.
type Manager struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*Session
	byPatient map[int]uuid.UUID

	newRecorder RecorderFactory
	generator   Generator
	metrics     *metrics.Metrics
	logger      *logger.Logger
}

func NewManager(newRecorder RecorderFactory, generator Generator, m *metrics.Metrics, log *logger.Logger) *Manager {
	return &Manager{
		sessions:    make(map[uuid.UUID]*Session),
		byPatient:   make(map[int]uuid.UUID),
		newRecorder: newRecorder,
		generator:   generator,
		metrics:     m,
		logger:      log,
	}
}

// StartSession creates a fresh session bound to patient. Any existing
// session for the same patient is reset first; sessions are never
// shared across patients.
func (m *Manager) StartSession(patient model.Patient, mode Mode) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if oldID, ok := m.byPatient[patient.ID]; ok {
		if old, ok := m.sessions[oldID]; ok {
			old.Reset()
			delete(m.sessions, oldID)
		}
		delete(m.byPatient, patient.ID)
		m.observeReset()
	}

	s := newSession(patient, mode, m.newRecorder, m.generator, m.metrics)
	m.sessions[s.ID()] = s
	m.byPatient[patient.ID] = s.ID()

	if m.metrics != nil {
		m.metrics.SessionsStarted.Inc()
		m.metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
	m.logger.Info("capture session started", "session_id", s.ID().String(), "patient_id", patient.ID)
	return s
}

// Get returns the live session with the given id.
func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove tears a session down: timers cancelled, device released,
// session forgotten. Used both for abandonment and after a successful
// sign-off.
func (m *Manager) Remove(id uuid.UUID, abandoned bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return
	}
	s.Reset()
	delete(m.sessions, id)
	delete(m.byPatient, s.PatientID())

	if abandoned {
		m.observeReset()
	}
	if m.metrics != nil {
		m.metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
}

func (m *Manager) observeReset() {
	if m.metrics != nil {
		m.metrics.SessionsReset.Inc()
	}
}

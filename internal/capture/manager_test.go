package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medscribe/scribe-api/internal/model"
	"github.com/medscribe/scribe-api/pkg/logger"
)

func newTestManager() *Manager {
	return NewManager(
		func() Recorder { return &fakeRecorder{} },
		&manualGenerator{},
		nil,
		logger.NewLogger(nil),
	)
}

func TestStartSessionReplacesExistingForPatient(t *testing.T) {
	m := newTestManager()
	patient := model.Patient{ID: 1, FullName: "Riya Sharma"}

	first := m.StartSession(patient, ModeRecord)
	require.NoError(t, first.StartRecording(context.Background()))

	second := m.StartSession(patient, ModeUpload)
	assert.NotEqual(t, first.ID(), second.ID())

	// The replaced session was reset, and only the new one is live.
	assert.Equal(t, StageIdle, first.Snapshot().Stage)
	_, ok := m.Get(first.ID())
	assert.False(t, ok)
	got, ok := m.Get(second.ID())
	require.True(t, ok)
	assert.Equal(t, second.ID(), got.ID())
}

func TestSessionsIndependentAcrossPatients(t *testing.T) {
	m := newTestManager()

	s1 := m.StartSession(model.Patient{ID: 1, FullName: "Riya Sharma"}, ModeRecord)
	s2 := m.StartSession(model.Patient{ID: 2, FullName: "Arjun Mehta"}, ModeUpload)

	require.NoError(t, s1.StartRecording(context.Background()))
	require.NoError(t, s2.SelectFile("visit-audio.mp3"))

	assert.Equal(t, StageRecording, s1.Snapshot().Stage)
	assert.Equal(t, StageReady, s2.Snapshot().Stage)
}

func TestRemoveTearsDownSession(t *testing.T) {
	m := newTestManager()
	s := m.StartSession(model.Patient{ID: 1, FullName: "Riya Sharma"}, ModeRecord)
	require.NoError(t, s.StartRecording(context.Background()))

	m.Remove(s.ID(), true)

	assert.Equal(t, StageIdle, s.Snapshot().Stage)
	_, ok := m.Get(s.ID())
	assert.False(t, ok)
}

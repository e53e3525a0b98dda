package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medscribe/scribe-api/internal/model"
	apperrors "github.com/medscribe/scribe-api/pkg/errors"
	"github.com/medscribe/scribe-api/pkg/metrics"
)

// Stage is the capture session lifecycle state.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageRecording  Stage = "recording"
	StageReady      Stage = "ready"
	StageProcessing Stage = "processing"
	StageGenerated  Stage = "generated"
	StageSigned     Stage = "signed"
)

// Mode is the active capture source.
type Mode string

const (
	ModeRecord Mode = "record"
	ModeUpload Mode = "upload"
)

var (
	ErrInvalidStage      = errors.New("operation not valid in current stage")
	ErrNoArtifact        = errors.New("no audio artifact captured")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrNoGeneratedNote   = errors.New("no generated note available")
)

// Session tracks one record/upload-to-note flow for one patient. All
// state is in memory; nothing is persisted until sign-off. Transitions
// are serialized under the session mutex, and every timer callback
// carries the epoch it was scheduled under: a tick whose epoch no
// longer matches is a no-op, which is what makes Reset safe against
// stale timers.
type Session struct {
	mu sync.Mutex

	id          uuid.UUID
	patientID   int
	patientName string
	mode        Mode
	stage       Stage

	recordedSeconds int
	artifact        *Artifact
	progress        int
	note            *model.GeneratedNote

	epoch       int
	recorder    Recorder
	newRecorder RecorderFactory
	generator   Generator
	cancelTimer func()
	metrics     *metrics.Metrics
}

// Snapshot is the session state exposed to callers.
type Snapshot struct {
	ID              uuid.UUID            `json:"id"`
	PatientID       int                  `json:"patientId"`
	Mode            Mode                 `json:"mode"`
	Stage           Stage                `json:"stage"`
	RecordedSeconds int                  `json:"recordedSeconds"`
	SourceFileName  string               `json:"sourceFileName,omitempty"`
	Progress        int                  `json:"processingProgress"`
	GeneratedNote   *model.GeneratedNote `json:"generatedNote,omitempty"`
}

func newSession(patient model.Patient, mode Mode, newRecorder RecorderFactory, generator Generator, m *metrics.Metrics) *Session {
	if mode == "" {
		mode = ModeRecord
	}
	return &Session{
		id:          uuid.New(),
		patientID:   patient.ID,
		patientName: patient.FullName,
		mode:        mode,
		stage:       StageIdle,
		newRecorder: newRecorder,
		generator:   generator,
		metrics:     m,
	}
}

func (s *Session) ID() uuid.UUID  { return s.id }
func (s *Session) PatientID() int { return s.patientID }

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:              s.id,
		PatientID:       s.patientID,
		Mode:            s.mode,
		Stage:           s.stage,
		RecordedSeconds: s.recordedSeconds,
		Progress:        s.progress,
	}
	if s.artifact != nil {
		snap.SourceFileName = s.artifact.Name
	}
	if s.stage == StageGenerated && s.note != nil {
		noteCopy := *s.note
		snap.GeneratedNote = &noteCopy
	}
	return snap
}

// StartRecording acquires the input device and begins the elapsed
// clock. Acquisition failure is non-fatal: the session stays Idle and
// the caller may retry. Device acquisition may block pending user
// permission, so it happens outside the session mutex; the session
// stays readable while the prompt is up.
func (s *Session) StartRecording(ctx context.Context) error {
	s.mu.Lock()
	if s.stage != StageIdle {
		s.mu.Unlock()
		return ErrInvalidStage
	}
	factory := s.newRecorder
	s.mu.Unlock()

	recorder := factory()
	if err := recorder.Start(ctx); err != nil {
		return apperrors.Unavailable("microphone unavailable", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageIdle {
		// The session moved on while acquisition was pending.
		recorder.Release()
		return ErrInvalidStage
	}

	s.recorder = recorder
	s.mode = ModeRecord
	s.stage = StageRecording
	s.recordedSeconds = 0

	s.clearTimerLocked()
	s.epoch++
	epoch := s.epoch
	s.cancelTimer = scheduleTicker(time.Second, func() {
		s.onClockTick(epoch)
	})
	return nil
}

func (s *Session) onClockTick(epoch int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.stage != StageRecording {
		return
	}
	s.recordedSeconds++
}

// StopRecording finalizes the captured audio into an artifact.
func (s *Session) StopRecording() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != StageRecording {
		return ErrInvalidStage
	}

	s.clearTimerLocked()
	s.epoch++

	artifact, err := s.recorder.Stop()
	if err != nil {
		s.recorder.Release()
		s.recorder = nil
		s.stage = StageIdle
		return apperrors.Unavailable("failed to finalize recording", err)
	}
	s.recorder = nil
	s.artifact = &artifact
	s.stage = StageReady
	return nil
}

// SelectFile accepts an uploaded file as the capture artifact,
// equivalent to having finished a recording.
func (s *Session) SelectFile(fileName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != StageIdle {
		return ErrInvalidStage
	}
	if !SupportedFormat(fileName) {
		return ErrUnsupportedFormat
	}

	s.mode = ModeUpload
	s.artifact = &Artifact{Name: fileName}
	s.stage = StageReady
	return nil
}

// SwitchMode changes the capture source. Switching while Ready
// discards the current artifact and returns to Idle; only one source
// is ever active.
func (s *Session) SwitchMode(mode Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.stage {
	case StageIdle:
		s.mode = mode
		return nil
	case StageReady:
		s.mode = mode
		s.artifact = nil
		s.stage = StageIdle
		return nil
	default:
		return ErrInvalidStage
	}
}

// StartGeneration kicks off the note generation job. Requires an
// artifact; rejected from any stage but Ready.
func (s *Session) StartGeneration() error {
	s.mu.Lock()

	if s.stage != StageReady {
		s.mu.Unlock()
		return ErrInvalidStage
	}
	if s.artifact == nil {
		s.mu.Unlock()
		return ErrNoArtifact
	}

	// Only one timer per session: whatever clock is still pending is
	// cleared before the progress job owns the slot.
	s.clearTimerLocked()
	s.epoch++
	epoch := s.epoch

	s.stage = StageProcessing
	s.progress = 0
	if s.metrics != nil {
		s.metrics.GenerationsStarted.Inc()
	}

	artifact := *s.artifact
	s.mu.Unlock()

	// The generator may deliver callbacks synchronously from Start, and
	// the callbacks take the session mutex, so the job is launched
	// outside the lock.
	cancel := s.generator.Start(artifact, s.patientName,
		func(p int) { s.onProgress(epoch, p) },
		func(note model.GeneratedNote) { s.onComplete(epoch, note) },
	)

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.stage != StageProcessing {
		// The job already completed, or a reset raced the launch and
		// owns the session now. Either way the cancel func is stale.
		cancel()
		return nil
	}
	s.cancelTimer = cancel
	return nil
}

func (s *Session) onProgress(epoch, progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.stage != StageProcessing {
		return
	}
	if progress > 100 {
		progress = 100
	}
	s.progress = progress
}

func (s *Session) onComplete(epoch int, note model.GeneratedNote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.stage != StageProcessing {
		return
	}
	note.Duration = DurationLabel(s.recordedSeconds)
	s.progress = 100
	s.note = &note
	s.stage = StageGenerated
	s.cancelTimer = nil
	if s.metrics != nil {
		s.metrics.GenerationsCompleted.Inc()
	}
}

// GeneratedNote returns the finished note and elapsed recording
// seconds once the session has reached Generated.
func (s *Session) GeneratedNote() (model.GeneratedNote, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageGenerated || s.note == nil {
		return model.GeneratedNote{}, 0, ErrNoGeneratedNote
	}
	return *s.note, s.recordedSeconds, nil
}

// MarkSigned records a successful sign-off commit.
func (s *Session) MarkSigned() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageGenerated {
		return ErrInvalidStage
	}
	s.clearTimerLocked()
	s.epoch++
	s.stage = StageSigned
	return nil
}

// Reset returns the session to Idle from any stage: timers cancelled,
// device released, artifact and progress discarded. Timer callbacks
// scheduled before the reset observe a stale epoch and do nothing.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearTimerLocked()
	s.epoch++

	if s.stage == StageProcessing && s.metrics != nil {
		s.metrics.GenerationsCancelled.Inc()
	}
	if s.recorder != nil {
		s.recorder.Release()
		s.recorder = nil
	}

	s.stage = StageIdle
	s.artifact = nil
	s.progress = 0
	s.note = nil
	s.recordedSeconds = 0
}

func (s *Session) clearTimerLocked() {
	if s.cancelTimer != nil {
		s.cancelTimer()
		s.cancelTimer = nil
	}
}

// scheduleTicker runs tick every interval until the returned cancel is
// called. Cancel is idempotent and safe to call under the session
// mutex: it only closes a channel, it never joins the goroutine.
func scheduleTicker(interval time.Duration, tick func()) (cancel func()) {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				tick()
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

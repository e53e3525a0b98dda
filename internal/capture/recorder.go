package capture

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"
)

// Artifact is the finalized audio source for a session: either a
// stopped recording or an uploaded file.
type Artifact struct {
	Name string `json:"name"`
}

// Recorder abstracts the audio input device. The state machine only
// depends on this contract, so platform audio APIs (or a browser
// MediaRecorder proxy) can be substituted without touching it.
type Recorder interface {
	// Start acquires the input device. May block pending user
	// permission; a denial must return an error, never hang forever.
	Start(ctx context.Context) error
	// Stop finalizes the captured audio into a named artifact.
	Stop() (Artifact, error)
	// Release frees the device without producing an artifact.
	Release()
}

// RecorderFactory produces a fresh recorder per recording attempt.
type RecorderFactory func() Recorder

// Audio formats accepted for upload, by extension.
var supportedFormats = map[string]bool{
	".mp3": true,
	".wav": true,
	".m4a": true,
	".aac": true,
	".ogg": true,
}

// SupportedFormat reports whether fileName carries an accepted audio
// extension.
func SupportedFormat(fileName string) bool {
	return supportedFormats[strings.ToLower(path.Ext(fileName))]
}

// memoryRecorder is the in-process recorder used when no real audio
// backend is attached. It produces a timestamp-named artifact.
type memoryRecorder struct {
	mu      sync.Mutex
	started bool
	at      time.Time
}

func NewMemoryRecorder() Recorder {
	return &memoryRecorder{}
}

func (r *memoryRecorder) Start(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("recorder already started")
	}
	r.started = true
	r.at = time.Now()
	return nil
}

func (r *memoryRecorder) Stop() (Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return Artifact{}, fmt.Errorf("recorder not started")
	}
	r.started = false
	return Artifact{Name: "recording-" + r.at.Format("20060102-150405") + ".wav"}, nil
}

func (r *memoryRecorder) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = false
}

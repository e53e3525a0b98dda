package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/medscribe/scribe-api/internal/model"
)

// Generator is the note generation job behind the state machine. The
// interface is the stable seam: start the job, receive progress in the
// 0-100 range, receive exactly one completion with the finished note.
// A real transcription/inference backend slots in here; the default
// implementation below is a timed simulation.
type Generator interface {
	// Start launches the job and returns a cancel function. After
	// cancel returns, no further callbacks are delivered.
	Start(artifact Artifact, patientName string, onProgress func(int), onComplete func(model.GeneratedNote)) (cancel func())
}

// SimulatedConfig controls the fake job's timing. Progress begins at
// Seed and advances by Increment every Interval until it reaches 100.
type SimulatedConfig struct {
	Seed      int
	Increment int
	Interval  time.Duration
}

func DefaultSimulatedConfig() SimulatedConfig {
	return SimulatedConfig{
		Seed:      5,
		Increment: 10,
		Interval:  600 * time.Millisecond,
	}
}

type simulatedGenerator struct {
	cfg SimulatedConfig
}

func NewSimulatedGenerator(cfg SimulatedConfig) Generator {
	if cfg.Seed <= 0 {
		cfg.Seed = 5
	}
	if cfg.Increment <= 0 {
		cfg.Increment = 10
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 600 * time.Millisecond
	}
	return &simulatedGenerator{cfg: cfg}
}

func (g *simulatedGenerator) Start(artifact Artifact, patientName string, onProgress func(int), onComplete func(model.GeneratedNote)) func() {
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() { close(done) })
	}

	go func() {
		progress := g.cfg.Seed
		onProgress(progress)

		ticker := time.NewTicker(g.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				progress += g.cfg.Increment
				if progress >= 100 {
					select {
					case <-done:
						return
					default:
					}
					onProgress(100)
					onComplete(FabricateNote(artifact, patientName))
					return
				}
				onProgress(progress)
			}
		}
	}()

	return cancel
}

// FabricateNote builds the deterministic simulated output for an
// artifact. The content is fixed apart from the patient name so the
// downstream sign-off path exercises every note field.
func FabricateNote(artifact Artifact, patientName string) model.GeneratedNote {
	if patientName == "" {
		patientName = "The patient"
	}
	return model.GeneratedNote{
		Summary: fmt.Sprintf("%s presented with a three-day history of fever, sore throat and productive cough. "+
			"Examination findings consistent with an upper respiratory tract infection. "+
			"Advised rest, hydration and symptomatic treatment; review if symptoms persist beyond five days.", patientName),
		Codes: []string{"J06.9", "R50.9", "R05"},
		SoapNote: &model.SoapNote{
			Subjective: fmt.Sprintf("%s reports fever up to 101F for three days with sore throat, dry cough becoming productive, and general malaise. No shortness of breath, no chest pain.", patientName),
			Objective:  "Temp 100.4F, HR 92, BP 118/76, SpO2 98% on room air. Oropharynx erythematous without exudate. Chest clear to auscultation bilaterally.",
			Assessment: "Acute upper respiratory tract infection, likely viral. Low suspicion for bacterial pharyngitis or lower respiratory involvement.",
			Plan:       "Symptomatic management with antipyretics and saline gargles. Encourage oral fluids. Return precautions discussed; review in five days if not improving.",
		},
		Medications: []model.Medication{
			{Name: "Paracetamol", Dose: "500mg", Frequency: "Every 6 hours as needed", Type: model.MedicationNew},
			{Name: "Cetirizine", Dose: "10mg", Frequency: "Once daily at night", Type: model.MedicationNew},
			{Name: "Metformin", Dose: "500mg", Frequency: "Twice daily", Type: model.MedicationCurrent},
		},
	}
}

// DurationLabel renders elapsed recording seconds as the store's
// unit-suffixed duration string, never below one minute.
func DurationLabel(recordedSeconds int) string {
	minutes := recordedSeconds / 60
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%dm", minutes)
}

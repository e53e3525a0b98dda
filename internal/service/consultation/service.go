package consultation

import (
	"context"
	"fmt"
	"time"

	"github.com/medscribe/scribe-api/internal/event"
	"github.com/medscribe/scribe-api/internal/model"
	"github.com/medscribe/scribe-api/internal/store"
	"github.com/medscribe/scribe-api/pkg/errors"
	"github.com/medscribe/scribe-api/pkg/logger"
	"github.com/medscribe/scribe-api/pkg/metrics"
	"github.com/medscribe/scribe-api/pkg/recordstore"
)

// formattedDateLayout is the display form of a consultation's start
// time, shared by every screen.
const formattedDateLayout = "Jan 2, 2006 3:04 PM"

type ConsultationService interface {
	ListEnriched(ctx context.Context) ([]model.EnrichedNote, error)
	GetEnriched(ctx context.Context, id int) (*model.EnrichedNote, error)
	SignOff(ctx context.Context, patientID int, note model.GeneratedNote) (*model.Consultation, error)
	Delete(ctx context.Context, id int) error
}

type Service struct {
	store   *store.Store
	emitter *event.Emitter
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewService(st *store.Store, emitter *event.Emitter, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		store:   st,
		emitter: emitter,
		metrics: m,
		logger:  log,
	}
}

// PatientIndex builds the id lookup enrichment needs. Callers hold it
// across a whole list so enriching stays O(n) rather than O(n·m).
func PatientIndex(patients []model.Patient) map[int]model.Patient {
	index := make(map[int]model.Patient, len(patients))
	for _, p := range patients {
		index[p.ID] = p
	}
	return index
}

// Enrich joins a consultation with its owning patient and the derived
// display fields. Pure. A dangling patient reference falls back to the
// sentinel name instead of failing: patient deletes do not cascade, so
// orphaned consultations must still render.
func Enrich(c model.Consultation, index map[int]model.Patient) model.EnrichedNote {
	note := model.EnrichedNote{
		Consultation:  c,
		PatientName:   model.UnknownPatientName,
		NoteStatus:    model.DeriveNoteStatus(c.Status),
		FormattedDate: c.StartedAt.Format(formattedDateLayout),
	}
	if p, ok := index[c.PatientID]; ok {
		note.PatientName = p.FullName
		note.PatientInitials = model.Initials(p.FullName)
	}
	return note
}

// EnrichAll enriches a whole collection against one prebuilt index.
func EnrichAll(consultations []model.Consultation, index map[int]model.Patient) []model.EnrichedNote {
	notes := make([]model.EnrichedNote, 0, len(consultations))
	for _, c := range consultations {
		notes = append(notes, Enrich(c, index))
	}
	return notes
}

func (s *Service) ListEnriched(ctx context.Context) ([]model.EnrichedNote, error) {
	patients, err := s.store.Patients(ctx)
	if err != nil {
		return nil, errors.Unavailable("failed to load patients", err)
	}
	consultations, err := s.store.Consultations(ctx)
	if err != nil {
		return nil, errors.Unavailable("failed to load consultations", err)
	}
	return EnrichAll(consultations, PatientIndex(patients)), nil
}

func (s *Service) GetEnriched(ctx context.Context, id int) (*model.EnrichedNote, error) {
	notes, err := s.ListEnriched(ctx)
	if err != nil {
		return nil, err
	}
	for i := range notes {
		if notes[i].ID == id {
			return &notes[i], nil
		}
	}
	return nil, errors.NotFound("consultation", nil)
}

// signedPatch is the partial update applied when an in-progress
// consultation is signed off.
type signedPatch struct {
	Status   string `json:"status"`
	Summary  string `json:"summary"`
	Duration string `json:"duration"`
}

// SignOff commits a generated note. If the patient already has an
// "In Progress" consultation it is patched in place; otherwise a new
// signed consultation is created. One best-effort write, no rollback:
// on failure the capture session stays in Generated so the clinician
// retries without re-recording, and a write whose response was lost is
// reconciled by the next snapshot reload.
func (s *Service) SignOff(ctx context.Context, patientID int, note model.GeneratedNote) (*model.Consultation, error) {
	start := time.Now()
	committed, outcome, err := s.commit(ctx, patientID, note)
	if s.metrics != nil {
		s.metrics.SignOffs.WithLabelValues(outcome).Inc()
		s.metrics.SignOffLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}

	s.store.Invalidate()
	s.emitter.Emit(ctx, event.TypeConsultationSigned, committed)
	s.logger.Info("consultation signed off",
		"consultation_id", committed.ID, "patient_id", patientID, "outcome", outcome)
	return committed, nil
}

func (s *Service) commit(ctx context.Context, patientID int, note model.GeneratedNote) (*model.Consultation, string, error) {
	consultations, err := s.store.Consultations(ctx)
	if err != nil {
		return nil, "error", errors.Unavailable("failed to load consultations", err)
	}

	for _, c := range consultations {
		if c.PatientID != patientID || c.Status != model.StatusInProgress {
			continue
		}
		patched, err := recordstore.Patch[model.Consultation](ctx, s.store.Client(),
			recordstore.CollectionConsultations, c.ID, signedPatch{
				Status:   model.StatusSigned,
				Summary:  note.Summary,
				Duration: note.Duration,
			})
		if err != nil {
			return nil, "error", errors.Unavailable("failed to sign off consultation", err)
		}
		return patched, "patched", nil
	}

	created, err := recordstore.Create[model.Consultation](ctx, s.store.Client(),
		recordstore.CollectionConsultations, model.Consultation{
			PatientID:   patientID,
			StartedAt:   time.Now().UTC(),
			Status:      model.StatusSigned,
			Summary:     note.Summary,
			Duration:    note.Duration,
			Codes:       note.Codes,
			SoapNote:    note.SoapNote,
			Medications: note.Medications,
		})
	if err != nil {
		return nil, "error", errors.Unavailable("failed to create signed consultation", err)
	}
	return created, "created", nil
}

func (s *Service) Delete(ctx context.Context, id int) error {
	if err := recordstore.Delete(ctx, s.store.Client(), recordstore.CollectionConsultations, id); err != nil {
		return fmt.Errorf("failed to delete consultation: %w", err)
	}
	s.store.Invalidate()
	s.emitter.Emit(ctx, event.TypeConsultationDeleted, map[string]int{"id": id})
	return nil
}

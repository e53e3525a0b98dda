package patient

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/medscribe/scribe-api/internal/event"
	"github.com/medscribe/scribe-api/internal/model"
	"github.com/medscribe/scribe-api/internal/store"
	"github.com/medscribe/scribe-api/pkg/errors"
	"github.com/medscribe/scribe-api/pkg/logger"
	"github.com/medscribe/scribe-api/pkg/recordstore"
)

type PatientService interface {
	CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error)
	GetPatient(ctx context.Context, id int) (*model.Patient, error)
	ListPatients(ctx context.Context) ([]model.Patient, error)
	DeletePatient(ctx context.Context, id int) error
}

type Service struct {
	store   *store.Store
	emitter *event.Emitter
	logger  *logger.Logger
}

func NewService(st *store.Store, emitter *event.Emitter, log *logger.Logger) *Service {
	return &Service{
		store:   st,
		emitter: emitter,
		logger:  log,
	}
}

func (s *Service) CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	if strings.TrimSpace(req.FullName) == "" {
		return nil, errors.BadRequest("full name is required", nil)
	}

	created, err := recordstore.Create[model.Patient](ctx, s.store.Client(),
		recordstore.CollectionPatients, model.Patient{
			FullName: strings.TrimSpace(req.FullName),
			Age:      req.Age,
			Gender:   req.Gender,
			Phone:    req.Phone,
			Address:  req.Address,
			Aadhaar:  req.Aadhaar,
			MRN:      req.MRN,
		})
	if err != nil {
		return nil, errors.Unavailable("failed to create patient", err)
	}

	s.store.Invalidate()
	s.emitter.Emit(ctx, event.TypePatientCreated, created)
	s.logger.Info("patient created", "patient_id", created.ID)
	return created, nil
}

func (s *Service) GetPatient(ctx context.Context, id int) (*model.Patient, error) {
	patients, err := s.store.Patients(ctx)
	if err != nil {
		return nil, errors.Unavailable("failed to load patients", err)
	}
	for i := range patients {
		if patients[i].ID == id {
			return &patients[i], nil
		}
	}
	return nil, errors.NotFound("patient", nil)
}

func (s *Service) ListPatients(ctx context.Context) ([]model.Patient, error) {
	patients, err := s.store.Patients(ctx)
	if err != nil {
		return nil, errors.Unavailable("failed to load patients", err)
	}
	return patients, nil
}

// DeletePatient removes the patient record only. Consultations are
// deliberately left in place: the delete does not cascade, and
// enrichment renders the orphans under the sentinel name.
func (s *Service) DeletePatient(ctx context.Context, id int) error {
	if _, err := s.GetPatient(ctx, id); err != nil {
		return err
	}
	if err := recordstore.Delete(ctx, s.store.Client(), recordstore.CollectionPatients, id); err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	s.store.Invalidate()
	s.emitter.Emit(ctx, event.TypePatientDeleted, map[string]int{"id": id})
	s.logger.Info("patient deleted", "patient_id", id)
	return nil
}

// Aggregate computes the per-patient roster rollups. Pure. Status
// precedence, highest first: any Review consultation marks the whole
// patient Review, then Processing, then Signed; a patient with no
// consultations gets the NoNote sentinel.
func Aggregate(patients []model.Patient, consultations []model.Consultation) []model.EnrichedPatient {
	owned := make(map[int][]model.Consultation, len(patients))
	for _, c := range consultations {
		owned[c.PatientID] = append(owned[c.PatientID], c)
	}

	out := make([]model.EnrichedPatient, 0, len(patients))
	for _, p := range patients {
		cs := owned[p.ID]
		sort.Slice(cs, func(i, j int) bool {
			return cs[i].StartedAt.After(cs[j].StartedAt)
		})

		ep := model.EnrichedPatient{
			Patient:         p,
			ConsultCount:    len(cs),
			AggregateStatus: aggregateStatus(cs),
		}
		if len(cs) > 0 {
			last := cs[0].StartedAt
			ep.LastVisit = &last
		}
		out = append(out, ep)
	}
	return out
}

func aggregateStatus(consultations []model.Consultation) model.NoteStatus {
	if len(consultations) == 0 {
		return model.NoteStatusNone
	}

	hasProcessing := false
	for _, c := range consultations {
		switch model.DeriveNoteStatus(c.Status) {
		case model.NoteStatusReview:
			return model.NoteStatusReview
		case model.NoteStatusProcessing:
			hasProcessing = true
		}
	}
	if hasProcessing {
		return model.NoteStatusProcessing
	}
	return model.NoteStatusSigned
}

// Package view composes enrichment and aggregation over the full
// collections to drive the recordings list, the patient roster, and
// the dashboard tiles. Everything here is pure filtering and sorting,
// recomputed per request from the shared snapshots.
package view

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/medscribe/scribe-api/internal/model"
	consultationsvc "github.com/medscribe/scribe-api/internal/service/consultation"
	patientsvc "github.com/medscribe/scribe-api/internal/service/patient"
	"github.com/medscribe/scribe-api/internal/store"
	"github.com/medscribe/scribe-api/pkg/errors"
)

// Sort orders accepted by the two screens.
const (
	SortDateAsc   = "date-asc"
	SortDateDesc  = "date-desc"
	SortNameAsc   = "name-asc"
	SortNameDesc  = "name-desc"
	SortVisitAsc  = "visit-asc"
	SortVisitDesc = "visit-desc"
)

// Query carries the three view controls: free-text search, status
// filter pill (empty or "All" means no filter), and sort order.
type Query struct {
	Search string
	Status string
	Sort   string
}

// Stats are the dashboard tiles.
type Stats struct {
	TotalPatients      int                      `json:"totalPatients"`
	TotalConsultations int                      `json:"totalConsultations"`
	ByStatus           map[model.NoteStatus]int `json:"byStatus"`
}

type Service struct {
	store *store.Store
}

func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

func (s *Service) load(ctx context.Context) ([]model.Patient, []model.Consultation, error) {
	patients, err := s.store.Patients(ctx)
	if err != nil {
		return nil, nil, errors.Unavailable("failed to load patients", err)
	}
	consultations, err := s.store.Consultations(ctx)
	if err != nil {
		return nil, nil, errors.Unavailable("failed to load consultations", err)
	}
	return patients, consultations, nil
}

// Recordings returns the enriched consultation list for the recordings
// screen, searched, filtered, and sorted.
func (s *Service) Recordings(ctx context.Context, q Query) ([]model.EnrichedNote, error) {
	patients, consultations, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	notes := consultationsvc.EnrichAll(consultations, consultationsvc.PatientIndex(patients))
	return FilterRecordings(notes, q), nil
}

// Roster returns the aggregated patient list for the patients screen.
func (s *Service) Roster(ctx context.Context, q Query) ([]model.EnrichedPatient, error) {
	patients, consultations, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return FilterRoster(patientsvc.Aggregate(patients, consultations), q), nil
}

// Stats computes the dashboard counters from the same derivation the
// lists use, so every screen reports identical numbers.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	patients, consultations, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	byStatus := map[model.NoteStatus]int{
		model.NoteStatusReview:     0,
		model.NoteStatusProcessing: 0,
		model.NoteStatusSigned:     0,
	}
	for _, c := range consultations {
		byStatus[model.DeriveNoteStatus(c.Status)]++
	}
	return &Stats{
		TotalPatients:      len(patients),
		TotalConsultations: len(consultations),
		ByStatus:           byStatus,
	}, nil
}

// FilterRecordings applies search, status filter, and sort to an
// enriched note list. Pure; the input slice is not modified.
func FilterRecordings(notes []model.EnrichedNote, q Query) []model.EnrichedNote {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	statusFilter := parseStatusFilter(q.Status)

	out := make([]model.EnrichedNote, 0, len(notes))
	for _, n := range notes {
		if statusFilter != "" && n.NoteStatus != statusFilter {
			continue
		}
		if needle != "" && !matchesRecording(n, needle) {
			continue
		}
		out = append(out, n)
	}
	sortRecordings(out, q.Sort)
	return out
}

func matchesRecording(n model.EnrichedNote, needle string) bool {
	return strings.Contains(strings.ToLower(n.PatientName), needle) ||
		strings.Contains(strings.ToLower(n.Summary), needle) ||
		strings.Contains(strings.ToLower(strings.Join(n.Codes, " ")), needle)
}

func sortRecordings(notes []model.EnrichedNote, order string) {
	switch order {
	case SortDateAsc:
		sort.SliceStable(notes, func(i, j int) bool { return notes[i].StartedAt.Before(notes[j].StartedAt) })
	case SortNameAsc:
		sort.SliceStable(notes, func(i, j int) bool {
			return strings.ToLower(notes[i].PatientName) < strings.ToLower(notes[j].PatientName)
		})
	case SortNameDesc:
		sort.SliceStable(notes, func(i, j int) bool {
			return strings.ToLower(notes[i].PatientName) > strings.ToLower(notes[j].PatientName)
		})
	default: // newest first
		sort.SliceStable(notes, func(i, j int) bool { return notes[i].StartedAt.After(notes[j].StartedAt) })
	}
}

// FilterRoster applies search, status filter, and sort to the
// aggregated roster. Patients without a visit always sort last in the
// visit orders.
func FilterRoster(patients []model.EnrichedPatient, q Query) []model.EnrichedPatient {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	statusFilter := parseStatusFilter(q.Status)

	out := make([]model.EnrichedPatient, 0, len(patients))
	for _, p := range patients {
		if statusFilter != "" && p.AggregateStatus != statusFilter {
			continue
		}
		if needle != "" && !matchesRosterEntry(p, needle) {
			continue
		}
		out = append(out, p)
	}
	sortRoster(out, q.Sort)
	return out
}

func matchesRosterEntry(p model.EnrichedPatient, needle string) bool {
	return strings.Contains(strings.ToLower(p.FullName), needle) ||
		strings.Contains(strings.ToLower(p.Phone), needle) ||
		strings.Contains(strings.ToLower(p.MRN), needle)
}

func sortRoster(patients []model.EnrichedPatient, order string) {
	switch order {
	case SortNameDesc:
		sort.SliceStable(patients, func(i, j int) bool {
			return strings.ToLower(patients[i].FullName) > strings.ToLower(patients[j].FullName)
		})
	case SortVisitAsc:
		sort.SliceStable(patients, func(i, j int) bool {
			return visitBefore(patients[i].LastVisit, patients[j].LastVisit, true)
		})
	case SortVisitDesc:
		sort.SliceStable(patients, func(i, j int) bool {
			return visitBefore(patients[i].LastVisit, patients[j].LastVisit, false)
		})
	default:
		sort.SliceStable(patients, func(i, j int) bool {
			return strings.ToLower(patients[i].FullName) < strings.ToLower(patients[j].FullName)
		})
	}
}

// visitBefore orders two optional visit dates; a nil visit always
// sorts last regardless of direction.
func visitBefore(a, b *time.Time, ascending bool) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	if ascending {
		return a.Before(*b)
	}
	return a.After(*b)
}

func parseStatusFilter(s string) model.NoteStatus {
	switch s {
	case "", "All", "all":
		return ""
	default:
		return model.NoteStatus(s)
	}
}

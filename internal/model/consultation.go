package model

import (
	"strings"
	"time"
	"unicode"
)

// Persisted consultation status strings observed in the store. The
// store accepts free-form values; these are the ones this service
// writes or recognizes. Display logic never branches on these
// directly, only on the derived NoteStatus.
const (
	StatusInProgress = "In Progress"
	StatusProcessing = "Processing"
	StatusSigned     = "Signed"
	StatusFinal      = "Final"
	StatusDraft      = "Draft"
)

type Consultation struct {
	ID          int          `json:"id"`
	PatientID   int          `json:"patientId"`
	StartedAt   time.Time    `json:"startedAt"`
	Status      string       `json:"status"`
	Summary     string       `json:"summary,omitempty"`
	Duration    string       `json:"duration,omitempty"`
	Codes       []string     `json:"codes,omitempty"`
	SoapNote    *SoapNote    `json:"soapNote,omitempty"`
	Medications []Medication `json:"medications,omitempty"`
}

type SoapNote struct {
	Subjective string `json:"subjective,omitempty"`
	Objective  string `json:"objective,omitempty"`
	Assessment string `json:"assessment,omitempty"`
	Plan       string `json:"plan,omitempty"`
}

type MedicationType string

const (
	MedicationCurrent MedicationType = "Current"
	MedicationNew     MedicationType = "New"
)

type Medication struct {
	Name      string         `json:"name"`
	Dose      string         `json:"dose"`
	Frequency string         `json:"frequency"`
	Type      MedicationType `json:"type"`
}

// NoteStatus is the derived lifecycle state of a consultation's note.
// It is computed, never persisted.
type NoteStatus string

const (
	NoteStatusReview     NoteStatus = "Review"
	NoteStatusProcessing NoteStatus = "Processing"
	NoteStatusSigned     NoteStatus = "Signed"

	// NoteStatusNone is the roster sentinel for a patient with no
	// consultations. DeriveNoteStatus never returns it.
	NoteStatusNone NoteStatus = "NoNote"
)

// DeriveNoteStatus maps a persisted free-form status string to the
// closed NoteStatus enum. Total: every input maps to exactly one
// value, and unrecognized strings land on Review so they surface for
// attention rather than disappearing from filters.
func DeriveNoteStatus(raw string) NoteStatus {
	switch strings.TrimSpace(raw) {
	case StatusFinal, StatusSigned:
		return NoteStatusSigned
	case StatusInProgress, StatusProcessing:
		return NoteStatusProcessing
	default:
		return NoteStatusReview
	}
}

// UnknownPatientName is the enrichment fallback when a consultation
// references a patient that no longer exists. Patient deletes do not
// cascade, so dangling references are expected and must render.
const UnknownPatientName = "Unknown Patient"

// EnrichedNote joins a consultation with its owning patient and the
// display fields every screen needs. Recomputed per request, never
// persisted.
type EnrichedNote struct {
	Consultation
	PatientName     string     `json:"patientName"`
	PatientInitials string     `json:"patientInitials,omitempty"`
	NoteStatus      NoteStatus `json:"noteStatus"`
	FormattedDate   string     `json:"formattedDate"`
}

// Initials returns the upper-cased first letters of up to the first
// two whitespace-separated tokens of name.
func Initials(name string) string {
	fields := strings.Fields(name)
	if len(fields) > 2 {
		fields = fields[:2]
	}
	var b strings.Builder
	for _, f := range fields {
		r := []rune(f)
		b.WriteRune(unicode.ToUpper(r[0]))
	}
	return b.String()
}

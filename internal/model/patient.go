package model

import "time"

type Patient struct {
	ID       int    `json:"id"`
	FullName string `json:"fullName"`
	Age      *int   `json:"age,omitempty"`
	Gender   string `json:"gender,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
	Aadhaar  string `json:"aadhaar,omitempty"`
	MRN      string `json:"mrn,omitempty"`
}

type CreatePatientRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Age      *int   `json:"age" binding:"omitempty,gte=0"`
	Gender   string `json:"gender" binding:"omitempty,oneof=Male Female Other"`
	Phone    string `json:"phone" binding:"required,phone10"`
	Address  string `json:"address"`
	Aadhaar  string `json:"aadhaar"`
	MRN      string `json:"mrn"`
}

// EnrichedPatient is the roster rollup: the patient plus aggregates
// computed across every consultation they own. Never persisted.
type EnrichedPatient struct {
	Patient
	ConsultCount    int        `json:"consultCount"`
	LastVisit       *time.Time `json:"lastVisit,omitempty"`
	AggregateStatus NoteStatus `json:"aggregateStatus"`
}

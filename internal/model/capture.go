package model

// GeneratedNote is the output of a note generation job: everything the
// sign-off transaction commits besides identity and timestamps.
type GeneratedNote struct {
	Summary     string       `json:"summary"`
	Duration    string       `json:"duration"`
	Codes       []string     `json:"codes"`
	SoapNote    *SoapNote    `json:"soapNote"`
	Medications []Medication `json:"medications"`
}

type CreateSessionRequest struct {
	PatientID int    `json:"patientId" binding:"required,gt=0"`
	Mode      string `json:"mode" binding:"omitempty,oneof=record upload"`
	Autostart bool   `json:"autostart"`
}

type UploadFileRequest struct {
	FileName string `json:"fileName" binding:"required"`
}

type SwitchModeRequest struct {
	Mode string `json:"mode" binding:"required,oneof=record upload"`
}

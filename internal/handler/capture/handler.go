package capture

import (
	stderrors "errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medscribe/scribe-api/internal/capture"
	"github.com/medscribe/scribe-api/internal/model"
	consultationsvc "github.com/medscribe/scribe-api/internal/service/consultation"
	patientsvc "github.com/medscribe/scribe-api/internal/service/patient"
	"github.com/medscribe/scribe-api/pkg/errors"
	"github.com/medscribe/scribe-api/pkg/httputil"
	"github.com/medscribe/scribe-api/pkg/logger"
)

type Handler struct {
	manager       *capture.Manager
	patients      patientsvc.PatientService
	consultations consultationsvc.ConsultationService
	logger        *logger.Logger
}

func NewHandler(manager *capture.Manager, patients patientsvc.PatientService, consultations consultationsvc.ConsultationService, log *logger.Logger) *Handler {
	return &Handler{
		manager:       manager,
		patients:      patients,
		consultations: consultations,
		logger:        log,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	sessions := r.Group("/capture/sessions")
	{
		sessions.POST("", h.CreateSession)
		sessions.GET("/:id", h.GetSession)
		sessions.POST("/:id/record/start", h.StartRecording)
		sessions.POST("/:id/record/stop", h.StopRecording)
		sessions.POST("/:id/upload", h.UploadFile)
		sessions.POST("/:id/mode", h.SwitchMode)
		sessions.POST("/:id/generate", h.StartGeneration)
		sessions.POST("/:id/signoff", h.SignOff)
		sessions.DELETE("/:id", h.AbandonSession)
	}
}

// CreateSession starts a capture flow for a patient. Accepts a JSON
// body or, when deep-linked, the patientId/mode/autostart query
// parameters.
func (h *Handler) CreateSession(c *gin.Context) {
	var req model.CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.RespondWithError(c, errors.BadRequest(err.Error(), err))
			return
		}
	} else {
		patientID, err := strconv.Atoi(c.Query("patientId"))
		if err != nil {
			httputil.RespondWithError(c, errors.BadRequest("invalid patientId", err))
			return
		}
		req.PatientID = patientID
		req.Mode = c.DefaultQuery("mode", string(capture.ModeRecord))
		req.Autostart = c.Query("autostart") == "1"
	}

	if req.Mode != "" && req.Mode != string(capture.ModeRecord) && req.Mode != string(capture.ModeUpload) {
		httputil.RespondWithError(c, errors.BadRequest("mode must be record or upload", nil))
		return
	}

	// The consultation's foreign key must reference an existing
	// patient, so the flow refuses to start for an unknown one.
	patient, err := h.patients.GetPatient(c.Request.Context(), req.PatientID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	session := h.manager.StartSession(*patient, capture.Mode(req.Mode))

	if req.Autostart && capture.Mode(req.Mode) == capture.ModeRecord {
		if err := session.StartRecording(c.Request.Context()); err != nil {
			// Non-fatal: the session stays Idle and the client retries.
			h.logger.Error(err, "autostart recording failed", "session_id", session.ID().String())
		}
	}

	httputil.RespondWithCreated(c, session.Snapshot())
}

func (h *Handler) GetSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	httputil.RespondWithSuccess(c, session.Snapshot())
}

func (h *Handler) StartRecording(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.StartRecording(c.Request.Context()); err != nil {
		h.respondStageError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, session.Snapshot())
}

func (h *Handler) StopRecording(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.StopRecording(); err != nil {
		h.respondStageError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, session.Snapshot())
}

func (h *Handler) UploadFile(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req model.UploadFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest(err.Error(), err))
		return
	}

	if err := session.SelectFile(req.FileName); err != nil {
		h.respondStageError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, session.Snapshot())
}

func (h *Handler) SwitchMode(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req model.SwitchModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest(err.Error(), err))
		return
	}

	if err := session.SwitchMode(capture.Mode(req.Mode)); err != nil {
		h.respondStageError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, session.Snapshot())
}

func (h *Handler) StartGeneration(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.StartGeneration(); err != nil {
		h.respondStageError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, session.Snapshot())
}

// SignOff commits the generated note. On success the session is torn
// down; on failure it stays in Generated so the clinician can retry
// without re-recording.
func (h *Handler) SignOff(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	note, _, err := session.GeneratedNote()
	if err != nil {
		h.respondStageError(c, err)
		return
	}

	committed, err := h.consultations.SignOff(c.Request.Context(), session.PatientID(), note)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := session.MarkSigned(); err != nil {
		// The write committed; a concurrent reset only loses the
		// in-memory session, which is already torn down below.
		h.logger.Error(err, "session not in generated stage after sign-off", "session_id", session.ID().String())
	}
	h.manager.Remove(session.ID(), false)

	httputil.RespondWithSuccess(c, committed)
}

func (h *Handler) AbandonSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	h.manager.Remove(session.ID(), true)
	httputil.RespondWithSuccess(c, gin.H{"abandoned": session.ID().String()})
}

func (h *Handler) session(c *gin.Context) (*capture.Session, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid session id", err))
		return nil, false
	}
	session, ok := h.manager.Get(id)
	if !ok {
		httputil.RespondWithError(c, errors.NotFound("capture session", nil))
		return nil, false
	}
	return session, true
}

func (h *Handler) respondStageError(c *gin.Context, err error) {
	switch {
	case stderrors.Is(err, capture.ErrInvalidStage):
		httputil.RespondWithError(c, errors.Conflict(err.Error(), err))
	case stderrors.Is(err, capture.ErrUnsupportedFormat),
		stderrors.Is(err, capture.ErrNoArtifact),
		stderrors.Is(err, capture.ErrNoGeneratedNote):
		httputil.RespondWithError(c, errors.BadRequest(err.Error(), err))
	default:
		httputil.RespondWithError(c, err)
	}
}

package patient

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/medscribe/scribe-api/internal/model"
	patientsvc "github.com/medscribe/scribe-api/internal/service/patient"
	viewsvc "github.com/medscribe/scribe-api/internal/service/view"
	"github.com/medscribe/scribe-api/pkg/errors"
	"github.com/medscribe/scribe-api/pkg/httputil"
)

type Handler struct {
	service patientsvc.PatientService
	views   *viewsvc.Service
}

func NewHandler(service patientsvc.PatientService, views *viewsvc.Service) *Handler {
	return &Handler{service: service, views: views}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.POST("", h.CreatePatient)
		patients.GET("", h.ListPatients)
		patients.GET("/:id", h.GetPatient)
		patients.DELETE("/:id", h.DeletePatient)
	}
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.BadRequest(err.Error(), err))
		return
	}

	created, err := h.service.CreatePatient(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, created)
}

// ListPatients serves the roster view: search across name/phone/MRN,
// status filter pill, and sort order come in as query params.
func (h *Handler) ListPatients(c *gin.Context) {
	roster, err := h.views.Roster(c.Request.Context(), viewsvc.Query{
		Search: c.Query("search"),
		Status: c.Query("status"),
		Sort:   c.Query("sort"),
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, roster)
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid patient id", err))
		return
	}

	patient, err := h.service.GetPatient(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, patient)
}

func (h *Handler) DeletePatient(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid patient id", err))
		return
	}

	if err := h.service.DeletePatient(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": id})
}

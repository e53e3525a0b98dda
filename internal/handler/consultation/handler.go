package consultation

import (
	"strconv"

	"github.com/gin-gonic/gin"

	consultationsvc "github.com/medscribe/scribe-api/internal/service/consultation"
	viewsvc "github.com/medscribe/scribe-api/internal/service/view"
	"github.com/medscribe/scribe-api/pkg/errors"
	"github.com/medscribe/scribe-api/pkg/httputil"
)

type Handler struct {
	service consultationsvc.ConsultationService
	views   *viewsvc.Service
}

func NewHandler(service consultationsvc.ConsultationService, views *viewsvc.Service) *Handler {
	return &Handler{service: service, views: views}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	consultations := r.Group("/consultations")
	{
		consultations.GET("", h.ListConsultations)
		consultations.GET("/:id", h.GetConsultation)
		consultations.DELETE("/:id", h.DeleteConsultation)
	}
	r.GET("/stats", h.GetStats)
}

// ListConsultations serves the recordings view: search across patient
// name, summary and codes, status filter pill, and sort order.
func (h *Handler) ListConsultations(c *gin.Context) {
	notes, err := h.views.Recordings(c.Request.Context(), viewsvc.Query{
		Search: c.Query("search"),
		Status: c.Query("status"),
		Sort:   c.Query("sort"),
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, notes)
}

func (h *Handler) GetConsultation(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid consultation id", err))
		return
	}

	note, err := h.service.GetEnriched(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, note)
}

func (h *Handler) DeleteConsultation(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid consultation id", err))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": id})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.views.Stats(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, stats)
}

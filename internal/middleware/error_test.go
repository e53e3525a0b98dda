package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/medscribe/scribe-api/pkg/errors"
	"github.com/medscribe/scribe-api/pkg/httputil"
)

func newErrorTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), ErrorHandler())
	return r
}

func TestErrorHandlerRendersUnwrittenAppError(t *testing.T) {
	r := newErrorTestRouter()
	r.GET("/missing", func(c *gin.Context) {
		_ = c.Error(apperrors.NotFound("patient", nil))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "patient not found")
	assert.Contains(t, w.Body.String(), "trace_id")
}

func TestErrorHandlerSkipsWrittenResponses(t *testing.T) {
	r := newErrorTestRouter()
	r.GET("/conflict", func(c *gin.Context) {
		httputil.RespondWithError(c, apperrors.Conflict("already signed", nil))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/conflict", nil))

	// The handler's render stands alone; the middleware only logs.
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, strings.Count(w.Body.String(), "already signed"))
}

func TestErrorHandlerDefaultsUnknownErrorsToInternal(t *testing.T) {
	r := newErrorTestRouter()
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

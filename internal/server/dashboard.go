package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) SchoolDashboard(c *gin.Context) {
	schoolID, err := parseID(c.Query("schoolId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	acYear := strings.TrimSpace(c.Query("acYear"))
	if acYear == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if !s.requireSchoolAccess(c, schoolID) {
		return
	}

	summary, err := s.dashboardSvc.SchoolSummary(c.Request.Context(), schoolID, acYear)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, summary)
}

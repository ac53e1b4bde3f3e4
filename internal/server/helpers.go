package server

import (
	"math"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

// respond wraps successful payloads in the uniform success envelope.
func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func parseID(raw string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidRequest
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, ErrInvalidRequest
	}
	return id, nil
}

func pathID(c *gin.Context, name string) (snowflake.ID, bool) {
	id, err := parseID(c.Param(name))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return 0, false
	}
	return id, true
}

// toMinorUnits converts a rupee amount to paise. Requests carry decimal
// amounts; everything past the boundary is integer math.
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}

// requireSchoolAccess resolves the identity's scope against the school and
// aborts with 403 when it falls outside.
func (s *Server) requireSchoolAccess(c *gin.Context, schoolID snowflake.ID) bool {
	identity, ok := identityFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return false
	}
	allowed, err := s.scopeSvc.CanAccessSchool(c.Request.Context(), identity, schoolID)
	if err != nil {
		AbortWithError(c, err)
		return false
	}
	if !allowed {
		AbortWithError(c, ErrForbidden)
		return false
	}
	return true
}

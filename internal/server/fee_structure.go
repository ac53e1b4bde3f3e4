package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	feedomain "github.com/Shihab-md/unis-server-sub000/internal/feestructure/domain"
)

func (s *Server) ListFeeStructures(c *gin.Context) {
	acYear := strings.TrimSpace(c.Query("acYear"))
	structures, err := s.feeSvc.List(c.Request.Context(), acYear)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respond(c, http.StatusOK, structures)
}

type upsertFeeStructureRequest struct {
	SchoolID string           `json:"schoolId"`
	AcYear   string           `json:"acYear" binding:"required"`
	CourseID string           `json:"courseId" binding:"required"`
	Heads    []feeHeadRequest `json:"heads" binding:"required"`
	Active   *bool            `json:"active"`
	Remarks  string           `json:"remarks"`
}

type feeHeadRequest struct {
	HeadCode   string  `json:"headCode" binding:"required"`
	HeadName   string  `json:"headName" binding:"required"`
	Amount     float64 `json:"amount" binding:"required"`
	IsOptional bool    `json:"isOptional"`
}

func (s *Server) UpsertFeeStructure(c *gin.Context) {
	var req upsertFeeStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var schoolID *snowflake.ID
	if raw := strings.TrimSpace(req.SchoolID); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		schoolID = &id
	}
	courseID, err := parseID(req.CourseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	heads := make([]feedomain.FeeHead, 0, len(req.Heads))
	for _, head := range req.Heads {
		heads = append(heads, feedomain.FeeHead{
			HeadCode:   strings.TrimSpace(head.HeadCode),
			HeadName:   strings.TrimSpace(head.HeadName),
			Amount:     toMinorUnits(head.Amount),
			IsOptional: head.IsOptional,
		})
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	structure, err := s.feeSvc.Upsert(c.Request.Context(), feedomain.UpsertRequest{
		SchoolID: schoolID,
		AcYear:   strings.TrimSpace(req.AcYear),
		CourseID: courseID,
		Heads:    heads,
		Active:   active,
		Remarks:  strings.TrimSpace(req.Remarks),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, structure)
}

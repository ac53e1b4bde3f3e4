package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	invoicedomain "github.com/Shihab-md/unis-server-sub000/internal/invoice/domain"
)

type createInvoiceRequest struct {
	SchoolID  string  `json:"schoolId" binding:"required"`
	StudentID string  `json:"studentId" binding:"required"`
	AcYear    string  `json:"acYear" binding:"required"`
	CourseID  string  `json:"courseId" binding:"required"`
	Source    string  `json:"source"`
	DueDate   *string `json:"dueDate"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	schoolID, err := parseID(req.SchoolID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	studentID, err := parseID(req.StudentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	courseID, err := parseID(req.CourseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !s.requireSchoolAccess(c, schoolID) {
		return
	}
	identity, _ := identityFrom(c)

	source := invoicedomain.InvoiceSource(strings.ToUpper(strings.TrimSpace(req.Source)))
	if source == "" {
		source = invoicedomain.SourceManual
	}

	var dueDate *time.Time
	if req.DueDate != nil && strings.TrimSpace(*req.DueDate) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(*req.DueDate))
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		dueDate = &parsed
	}

	inv, err := s.invoiceSvc.CreateFromStructure(c.Request.Context(), invoicedomain.CreateRequest{
		SchoolID:  schoolID,
		StudentID: studentID,
		UserID:    identity.UserID,
		AcYear:    strings.TrimSpace(req.AcYear),
		CourseID:  courseID,
		Source:    source,
		DueDate:   dueDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordInvoiceIssued()
	respond(c, http.StatusCreated, inv)
}

func (s *Server) ListDueInvoices(c *gin.Context) {
	schoolID, ok := pathID(c, "schoolId")
	if !ok {
		return
	}
	acYear := strings.TrimSpace(c.Param("acYear"))
	if acYear == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	if !s.requireSchoolAccess(c, schoolID) {
		return
	}

	var status *invoicedomain.InvoiceStatus
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("status"))); raw != "" {
		st := invoicedomain.InvoiceStatus(raw)
		status = &st
	}

	invoices, err := s.invoiceSvc.ListDue(c.Request.Context(), invoicedomain.ListDueRequest{
		SchoolID: schoolID,
		AcYear:   acYear,
		Status:   status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, invoices)
}

func (s *Server) GetInvoice(c *gin.Context) {
	invoiceID, ok := pathID(c, "invoiceId")
	if !ok {
		return
	}

	inv, err := s.invoiceSvc.Get(c.Request.Context(), invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !s.requireSchoolAccess(c, inv.SchoolID) {
		return
	}

	respond(c, http.StatusOK, inv)
}

func (s *Server) CancelInvoice(c *gin.Context) {
	invoiceID, ok := pathID(c, "invoiceId")
	if !ok {
		return
	}

	if err := s.invoiceSvc.Cancel(c.Request.Context(), invoiceID); err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"cancelled": true})
}

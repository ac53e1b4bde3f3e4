package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	invoicedomain "github.com/Shihab-md/unis-server-sub000/internal/invoice/domain"
	batchdomain "github.com/Shihab-md/unis-server-sub000/internal/paymentbatch/domain"
	schooldomain "github.com/Shihab-md/unis-server-sub000/internal/school/domain"
	"github.com/Shihab-md/unis-server-sub000/internal/providers/pdf"
)

type batchAllocationRequest struct {
	HeadCode string  `json:"headCode" binding:"required"`
	Amount   float64 `json:"amount" binding:"required"`
}

type batchItemRequest struct {
	InvoiceID   string                   `json:"invoiceId" binding:"required"`
	StudentID   string                   `json:"studentId" binding:"required"`
	Amount      float64                  `json:"amount" binding:"required"`
	Allocations []batchAllocationRequest `json:"allocations"`
}

type createBatchRequest struct {
	SchoolID    string             `json:"schoolId" binding:"required"`
	AcYear      string             `json:"acYear" binding:"required"`
	Mode        string             `json:"mode"`
	ReferenceNo string             `json:"referenceNo"`
	ProofURL    string             `json:"proofUrl"`
	PaidDate    *string            `json:"paidDate"`
	Remarks     string             `json:"remarks"`
	Items       []batchItemRequest `json:"items" binding:"required"`
}

func (s *Server) CreatePaymentBatch(c *gin.Context) {
	var req createBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	schoolID, err := parseID(req.SchoolID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !s.requireSchoolAccess(c, schoolID) {
		return
	}
	identity, _ := identityFrom(c)

	var paidDate *time.Time
	if req.PaidDate != nil && strings.TrimSpace(*req.PaidDate) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(*req.PaidDate))
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		paidDate = &parsed
	}

	items := make([]batchdomain.CreateItemInput, 0, len(req.Items))
	for i, in := range req.Items {
		invoiceID, err := parseID(in.InvoiceID)
		if err != nil {
			AbortWithError(c, batchdomain.Validationf("item %d: invalid invoiceId", i))
			return
		}
		studentID, err := parseID(in.StudentID)
		if err != nil {
			AbortWithError(c, batchdomain.Validationf("item %d: invalid studentId", i))
			return
		}

		item := batchdomain.CreateItemInput{
			InvoiceID: invoiceID,
			StudentID: studentID,
			Amount:    toMinorUnits(in.Amount),
		}
		for _, alloc := range in.Allocations {
			item.Allocations = append(item.Allocations, invoicedomain.HeadAllocation{
				HeadCode: strings.TrimSpace(alloc.HeadCode),
				Amount:   toMinorUnits(alloc.Amount),
			})
		}
		items = append(items, item)
	}

	result, err := s.batchSvc.Create(c.Request.Context(), batchdomain.CreateInput{
		SchoolID:       schoolID,
		AcYear:         strings.TrimSpace(req.AcYear),
		Mode:           batchdomain.PaymentMode(strings.ToLower(strings.TrimSpace(req.Mode))),
		ReferenceNo:    req.ReferenceNo,
		ProofURL:       req.ProofURL,
		PaidDate:       paidDate,
		Remarks:        req.Remarks,
		IdempotencyKey: strings.TrimSpace(c.GetHeader("Idempotency-Key")),
		CreatedBy:      identity.UserID,
		Items:          items,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if result.Replayed {
		respond(c, http.StatusOK, result)
		return
	}
	s.metrics.RecordBatchSubmitted()
	respond(c, http.StatusCreated, result)
}

func (s *Server) ListPaymentBatches(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	filter := batchdomain.ListFilter{
		AcYear: strings.TrimSpace(c.Query("acYear")),
	}
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("status"))); raw != "" {
		status := batchdomain.BatchStatus(raw)
		filter.Status = &status
	}

	if raw := strings.TrimSpace(c.Query("schoolId")); raw != "" {
		schoolID, err := parseID(raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !s.requireSchoolAccess(c, schoolID) {
			return
		}
		filter.SchoolIDs = []snowflake.ID{schoolID}
	} else {
		ids, unscoped, err := s.scopeSvc.SchoolIDs(c.Request.Context(), identity)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !unscoped {
			if len(ids) == 0 {
				respond(c, http.StatusOK, []batchdomain.PaymentBatch{})
				return
			}
			filter.SchoolIDs = ids
		}
	}

	batches, err := s.batchSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, batches)
}

func (s *Server) GetPaymentBatch(c *gin.Context) {
	batchID, ok := pathID(c, "batchId")
	if !ok {
		return
	}

	batch, err := s.batchSvc.Get(c.Request.Context(), batchID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !s.requireSchoolAccess(c, batch.SchoolID) {
		return
	}

	respond(c, http.StatusOK, batch)
}

func (s *Server) ApprovePaymentBatch(c *gin.Context) {
	batchID, ok := pathID(c, "batchId")
	if !ok {
		return
	}
	identity, _ := identityFrom(c)

	result, err := s.batchSvc.Approve(c.Request.Context(), batchID, identity.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordBatchApproved()
	s.metrics.RecordItemOutcomes(result.Applied, result.Failed)
	respond(c, http.StatusOK, result)
}

type rejectBatchRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (s *Server) RejectPaymentBatch(c *gin.Context) {
	batchID, ok := pathID(c, "batchId")
	if !ok {
		return
	}
	identity, _ := identityFrom(c)

	var req rejectBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.batchSvc.Reject(c.Request.Context(), batchID, identity.UserID, req.Reason); err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordBatchRejected()
	respond(c, http.StatusOK, gin.H{"rejected": true})
}

// PaymentBatchReceipt streams the receipt PDF for an approved batch.
func (s *Server) PaymentBatchReceipt(c *gin.Context) {
	batchID, ok := pathID(c, "batchId")
	if !ok {
		return
	}

	batch, err := s.batchSvc.Get(c.Request.Context(), batchID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !s.requireSchoolAccess(c, batch.SchoolID) {
		return
	}
	if batch.Status != batchdomain.BatchStatusApproved || batch.ReceiptNumber == nil {
		AbortWithError(c, batchdomain.ErrInvalidState)
		return
	}

	data, err := s.buildReceiptData(c, batch)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	reader, err := s.pdfRenderer.RenderReceipt(c.Request.Context(), data)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", *batch.ReceiptNumber))
	c.Header("Content-Type", "application/pdf")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, reader)
}

func (s *Server) buildReceiptData(c *gin.Context, batch batchdomain.PaymentBatch) (pdf.ReceiptData, error) {
	ctx := c.Request.Context()

	var school schooldomain.School
	if err := s.db.WithContext(ctx).Where("id = ?", batch.SchoolID).First(&school).Error; err != nil {
		return pdf.ReceiptData{}, err
	}

	approvedDate := ""
	if batch.ApprovedAt != nil {
		approvedDate = batch.ApprovedAt.Format("02 Jan 2006")
	}

	data := pdf.ReceiptData{
		SchoolName:    school.Name,
		AcYear:        batch.AcYear,
		ReceiptNumber: *batch.ReceiptNumber,
		BatchNo:       batch.BatchNo,
		ApprovedDate:  approvedDate,
		Mode:          string(batch.Mode),
		ReferenceNo:   batch.ReferenceNo,
		TotalAmount:   fmt.Sprintf("%.2f", fromMinorUnits(batch.TotalAmount)),
	}

	for _, item := range batch.Items {
		var inv invoicedomain.FeeInvoice
		if err := s.db.WithContext(ctx).Where("id = ?", item.InvoiceID).First(&inv).Error; err != nil {
			return pdf.ReceiptData{}, err
		}
		var student schooldomain.Student
		if err := s.db.WithContext(ctx).Where("id = ?", item.StudentID).First(&student).Error; err != nil {
			return pdf.ReceiptData{}, err
		}
		data.Items = append(data.Items, pdf.ReceiptItem{
			InvoiceNo: inv.InvoiceNo,
			Student:   fmt.Sprintf("%s (%s)", student.Name, student.RollNo),
			Status:    string(item.Status),
			Amount:    fmt.Sprintf("%.2f", fromMinorUnits(item.Amount)),
		})
	}

	return data, nil
}

package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"

	invoicedomain "github.com/Shihab-md/unis-server-sub000/internal/invoice/domain"
)

type CreateItemInput struct {
	InvoiceID   snowflake.ID
	StudentID   snowflake.ID
	Amount      int64
	Allocations []invoicedomain.HeadAllocation
}

type CreateInput struct {
	SchoolID       snowflake.ID
	AcYear         string
	Mode           PaymentMode
	ReferenceNo    string
	ProofURL       string
	PaidDate       *time.Time
	Remarks        string
	IdempotencyKey string
	CreatedBy      snowflake.ID
	Items          []CreateItemInput
}

type CreateResult struct {
	BatchID snowflake.ID `json:"batch_id"`
	BatchNo string       `json:"batch_no"`
	// Replayed is true when an idempotency key matched an existing batch
	// and no new submission was made.
	Replayed bool `json:"replayed,omitempty"`
}

type ApplyResult struct {
	Applied int `json:"applied"`
	Failed  int `json:"failed"`
}

type ListFilter struct {
	// SchoolIDs restricts results to the given schools. Empty means
	// unrestricted; callers resolve access scope before building the filter.
	SchoolIDs []snowflake.ID
	AcYear    string
	Status    *BatchStatus
}

// Service is the payment batch workflow.
type Service interface {
	// Create validates the whole submission before any write, then inserts
	// the batch and its items in one transaction. Validation failures leave
	// zero rows behind.
	Create(ctx context.Context, input CreateInput) (CreateResult, error)
	// Approve transitions a pending batch to APPROVED and settles each item
	// independently against the invoice ledger. Item failures are recorded
	// on the item and never abort the batch-level commit.
	Approve(ctx context.Context, batchID, approvedBy snowflake.ID) (ApplyResult, error)
	// Reject terminally rejects the batch and every item. Invoices are not
	// touched.
	Reject(ctx context.Context, batchID, approvedBy snowflake.ID, reason string) error
	List(ctx context.Context, filter ListFilter) ([]PaymentBatch, error)
	Get(ctx context.Context, batchID snowflake.ID) (PaymentBatch, error)
}

var (
	ErrNotFound     = errors.New("payment batch not found")
	ErrInvalidState = errors.New("payment batch is not pending approval")
)

// ValidationError is a caller mistake in a batch submission; it surfaces
// verbatim as a 400 response.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func Validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

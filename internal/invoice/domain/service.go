package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateRequest struct {
	SchoolID   snowflake.ID
	StudentID  snowflake.ID
	UserID     snowflake.ID
	AcYear     string
	AcademicID *snowflake.ID
	CourseID   snowflake.ID
	Source     InvoiceSource
	DueDate    *time.Time
}

type ListDueRequest struct {
	SchoolID snowflake.ID
	AcYear   string
	Status   *InvoiceStatus
}

// Service is the invoice ledger. The ledger owns fee invoice documents
// exclusively; the payment batch workflow mutates them only through
// ApplyPayment inside its approval transaction.
type Service interface {
	CreateFromStructure(ctx context.Context, req CreateRequest) (FeeInvoice, error)
	Get(ctx context.Context, id snowflake.ID) (FeeInvoice, error)
	// ListDue returns payable invoices (balance > 0, ISSUED or PARTIAL),
	// excluding invoices referenced by a pending batch item. The exclusion
	// is a query-time soft lock; approval re-validation is the hard
	// correctness backstop.
	ListDue(ctx context.Context, req ListDueRequest) ([]FeeInvoice, error)
	// FindByIDs bulk-fetches invoices with items on the given handle, for
	// batch validation and approval-time re-validation.
	FindByIDs(ctx context.Context, tx *gorm.DB, ids []snowflake.ID) ([]FeeInvoice, error)
	// ApplyPayment settles amount against the invoice inside tx, honoring
	// per-head allocations when present and falling back to the waterfall.
	// It returns the amount actually applied after capacity clamps.
	ApplyPayment(ctx context.Context, tx *gorm.DB, invoice *FeeInvoice, amount int64, allocations []HeadAllocation) (int64, error)
	Cancel(ctx context.Context, id snowflake.ID) error
}

var (
	ErrNotFound         = errors.New("invoice not found")
	ErrCancelled        = errors.New("invoice is cancelled")
	ErrAlreadySettled   = errors.New("invoice has no outstanding balance")
	ErrStudentNotFound  = errors.New("student not found")
	ErrStudentMismatch  = errors.New("student does not belong to school")
	ErrNothingToApply   = errors.New("payment amount must be positive")
)

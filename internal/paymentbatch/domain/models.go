// Package domain contains the payment batch models and workflow contract.
//
// A batch is one school's submission of collected payments covering one or
// more fee invoices. It moves PENDING_APPROVAL -> APPROVED | REJECTED, both
// terminal. Items inside an approved batch settle independently: APPLIED,
// REJECTED or FAILED per item, so one stale invoice never blocks the rest
// of a school's legitimate payments.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// BatchStatus represents batch lifecycle states.
type BatchStatus string

const (
	BatchStatusPending   BatchStatus = "PENDING_APPROVAL"
	BatchStatusApproved  BatchStatus = "APPROVED"
	BatchStatusRejected  BatchStatus = "REJECTED"
	BatchStatusCancelled BatchStatus = "CANCELLED"
)

// Terminal reports whether no further transition may leave the state.
func (s BatchStatus) Terminal() bool {
	return s == BatchStatusApproved || s == BatchStatusRejected || s == BatchStatusCancelled
}

// ItemStatus represents per-item settlement outcomes.
type ItemStatus string

const (
	ItemStatusPending  ItemStatus = "PENDING_APPROVAL"
	ItemStatusApplied  ItemStatus = "APPLIED"
	ItemStatusRejected ItemStatus = "REJECTED"
	ItemStatusFailed   ItemStatus = "FAILED"
)

// PaymentMode is how the school collected the money.
type PaymentMode string

const (
	ModeCash   PaymentMode = "cash"
	ModeBank   PaymentMode = "bank"
	ModeUPI    PaymentMode = "upi"
	ModeOnline PaymentMode = "online"
)

func (m PaymentMode) Valid() bool {
	switch m {
	case ModeCash, ModeBank, ModeUPI, ModeOnline:
		return true
	default:
		return false
	}
}

// PaymentBatch is one school submission awaiting HQ review. TotalAmount is
// fixed at creation as the sum of item amounts; ReceiptNumber is allocated
// only on approval.
type PaymentBatch struct {
	ID             snowflake.ID  `json:"id" gorm:"primaryKey"`
	BatchNo        string        `json:"batch_no" gorm:"type:text;not null;uniqueIndex"`
	ReceiptNumber  *string       `json:"receipt_number,omitempty" gorm:"type:text"`
	SchoolID       snowflake.ID  `json:"school_id" gorm:"not null;index"`
	AcYear         string        `json:"ac_year" gorm:"type:text;not null;index"`
	TotalAmount    int64         `json:"total_amount" gorm:"not null"`
	ItemCount      int           `json:"item_count" gorm:"not null"`
	Mode           PaymentMode   `json:"mode" gorm:"type:text;not null;default:'cash'"`
	ReferenceNo    string        `json:"reference_no,omitempty" gorm:"type:text"`
	ProofURL       string        `json:"proof_url,omitempty" gorm:"type:text"`
	PaidDate       *time.Time    `json:"paid_date,omitempty"`
	Status         BatchStatus   `json:"status" gorm:"type:text;not null;default:'PENDING_APPROVAL';index"`
	CreatedBy      snowflake.ID  `json:"created_by" gorm:"not null"`
	ApprovedBy     *snowflake.ID `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time    `json:"approved_at,omitempty"`
	RejectedReason string        `json:"rejected_reason,omitempty" gorm:"type:text"`
	Remarks        string        `json:"remarks,omitempty" gorm:"type:text"`
	IdempotencyKey *string       `json:"idempotency_key,omitempty" gorm:"type:text;uniqueIndex"`
	CreatedAt      time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time     `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	Items []PaymentBatchItem `json:"items,omitempty" gorm:"foreignKey:BatchID"`
}

func (PaymentBatch) TableName() string { return "payment_batches" }

// PaymentBatchItem is one invoice's payment within a batch. Items share the
// batch's lifecycle and are never created or deleted on their own.
type PaymentBatchItem struct {
	ID          snowflake.ID   `json:"id" gorm:"primaryKey"`
	BatchID     snowflake.ID   `json:"batch_id" gorm:"not null;index;uniqueIndex:ux_batch_invoice"`
	SchoolID    snowflake.ID   `json:"school_id" gorm:"not null;index"`
	AcYear      string         `json:"ac_year" gorm:"type:text;not null"`
	InvoiceID   snowflake.ID   `json:"invoice_id" gorm:"not null;index;uniqueIndex:ux_batch_invoice"`
	StudentID   snowflake.ID   `json:"student_id" gorm:"not null;index"`
	Amount      int64          `json:"amount" gorm:"not null"`
	Allocations datatypes.JSON `json:"allocations,omitempty" gorm:"type:jsonb"`
	Status      ItemStatus     `json:"status" gorm:"type:text;not null;default:'PENDING_APPROVAL'"`
	Error       string         `json:"error,omitempty" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PaymentBatchItem) TableName() string { return "payment_batch_items" }

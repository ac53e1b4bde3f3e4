// Package domain contains persistence models for the fee invoice ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusIssued    InvoiceStatus = "ISSUED"
	InvoiceStatusPartial   InvoiceStatus = "PARTIAL"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// InvoiceSource records which event materialized the invoice.
type InvoiceSource string

const (
	SourceAdmission    InvoiceSource = "ADMISSION"
	SourceCourseChange InvoiceSource = "COURSE_CHANGE"
	SourceManual       InvoiceSource = "MANUAL"
)

// FeeInvoice is one billing instance for a student for a course/year.
// Amounts are int64 minor units. PaidTotal and Balance are always recomputed
// from the items, never written independently.
type FeeInvoice struct {
	ID         snowflake.ID  `json:"id" gorm:"primaryKey"`
	InvoiceNo  string        `json:"invoice_no" gorm:"type:text;not null;uniqueIndex"`
	SchoolID   snowflake.ID  `json:"school_id" gorm:"not null;index"`
	StudentID  snowflake.ID  `json:"student_id" gorm:"not null;index"`
	UserID     snowflake.ID  `json:"user_id" gorm:"not null"`
	AcYear     string        `json:"ac_year" gorm:"type:text;not null;index"`
	AcademicID *snowflake.ID `json:"academic_id,omitempty" gorm:"index"`
	CourseID   snowflake.ID  `json:"course_id" gorm:"not null;index"`
	Source     InvoiceSource `json:"source" gorm:"type:text;not null"`
	DueDate    *time.Time    `json:"due_date,omitempty"`
	Total      int64         `json:"total" gorm:"not null;default:0"`
	PaidTotal  int64         `json:"paid_total" gorm:"not null;default:0"`
	Balance    int64         `json:"balance" gorm:"not null;default:0"`
	Status     InvoiceStatus `json:"status" gorm:"type:text;not null;default:'ISSUED'"`
	CreatedAt  time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time     `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	Items []FeeInvoiceItem `json:"items,omitempty" gorm:"foreignKey:InvoiceID"`
}

func (FeeInvoice) TableName() string { return "fee_invoices" }

// FeeInvoiceItem is one fee head on an invoice. Position fixes the waterfall
// order for unallocated payments.
type FeeInvoiceItem struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	InvoiceID  snowflake.ID `json:"invoice_id" gorm:"not null;index"`
	Position   int          `json:"position" gorm:"not null"`
	HeadCode   string       `json:"head_code" gorm:"type:text;not null"`
	HeadName   string       `json:"head_name" gorm:"type:text;not null"`
	Amount     int64        `json:"amount" gorm:"not null"`
	Discount   int64        `json:"discount" gorm:"not null;default:0"`
	Fine       int64        `json:"fine" gorm:"not null;default:0"`
	NetAmount  int64        `json:"net_amount" gorm:"not null"`
	PaidAmount int64        `json:"paid_amount" gorm:"not null;default:0"`
}

func (FeeInvoiceItem) TableName() string { return "fee_invoice_items" }

// HeadAllocation directs part of a payment at a specific fee head.
type HeadAllocation struct {
	HeadCode string `json:"head_code"`
	Amount   int64  `json:"amount"`
}

// DeriveStatus applies the status derivation rule: zero balance is PAID,
// any payment is PARTIAL, otherwise ISSUED. CANCELLED is terminal and never
// derived here.
func DeriveStatus(total, paidTotal int64) InvoiceStatus {
	switch {
	case total-paidTotal <= 0:
		return InvoiceStatusPaid
	case paidTotal > 0:
		return InvoiceStatusPartial
	default:
		return InvoiceStatusIssued
	}
}

// Recompute refreshes PaidTotal, Balance and Status from the items. It is a
// no-op for cancelled invoices.
func (inv *FeeInvoice) Recompute() {
	var paid int64
	for _, item := range inv.Items {
		paid += item.PaidAmount
	}
	inv.PaidTotal = paid
	inv.Balance = inv.Total - paid
	if inv.Balance < 0 {
		inv.Balance = 0
	}
	if inv.Status != InvoiceStatusCancelled {
		inv.Status = DeriveStatus(inv.Total, inv.PaidTotal)
	}
}

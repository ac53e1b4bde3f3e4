// Package domain contains the shared number-sequence contract.
package domain

import "context"

// Well-known sequence names.
const (
	SeqInvoice = "Invoice"
	SeqBatch   = "Batch"
	SeqReceipt = "Receipt"
	SeqRoll    = "Roll"
)

// SequenceCounter is one named monotonic counter. The current number only
// ever increases; allocation consumes a number even when the surrounding
// transaction later aborts (gaps are acceptable, duplicates are not).
type SequenceCounter struct {
	Name          string `gorm:"primaryKey;type:text"`
	CurrentNumber int64  `gorm:"not null;default:0"`
}

func (SequenceCounter) TableName() string { return "sequence_counters" }

// Allocator hands out unique monotonically increasing numbers. Next must be
// a single atomic increment-and-read against the counter store; a missing
// counter is created at 1 in the same statement.
type Allocator interface {
	Next(ctx context.Context, name string) (int64, error)
	NextFormatted(ctx context.Context, name, prefix string, pad int) (string, error)
}

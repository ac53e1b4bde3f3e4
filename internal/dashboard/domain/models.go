// Package domain contains the school dashboard read models.
package domain

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// SchoolSummary is the hot aggregate served to the school dashboard.
// Amounts are int64 minor units.
type SchoolSummary struct {
	SchoolID       snowflake.ID `json:"school_id"`
	AcYear         string       `json:"ac_year"`
	BilledTotal    int64        `json:"billed_total"`
	PaidTotal      int64        `json:"paid_total"`
	BalanceTotal   int64        `json:"balance_total"`
	DueInvoices    int64        `json:"due_invoices"`
	PendingBatches int64        `json:"pending_batches"`
}

type Service interface {
	// SchoolSummary serves the aggregate from cache when warm and
	// recomputes + refreshes it on miss.
	SchoolSummary(ctx context.Context, schoolID snowflake.ID, acYear string) (SchoolSummary, error)
}

// SummaryCacheKey names the cache entry for one school/year aggregate.
// Approval invalidates it so settled payments show up immediately.
func SummaryCacheKey(schoolID snowflake.ID, acYear string) string {
	return fmt.Sprintf("dashboard:school:%s:%s", schoolID.String(), acYear)
}

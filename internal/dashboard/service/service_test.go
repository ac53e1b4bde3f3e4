package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Shihab-md/unis-server-sub000/internal/config"
	"github.com/Shihab-md/unis-server-sub000/internal/dashboard/domain"
	invoicedomain "github.com/Shihab-md/unis-server-sub000/internal/invoice/domain"
	batchdomain "github.com/Shihab-md/unis-server-sub000/internal/paymentbatch/domain"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&invoicedomain.FeeInvoice{},
		&batchdomain.PaymentBatch{},
	))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:     db,
		Log:    zap.NewNop(),
		Cache:  nil,
		Config: config.Config{},
	})
	return svc, db, node
}

func seedInvoice(t *testing.T, db *gorm.DB, node *snowflake.Node, schoolID snowflake.ID, acYear string, total, paid int64, status invoicedomain.InvoiceStatus) {
	t.Helper()
	inv := invoicedomain.FeeInvoice{
		ID:        node.Generate(),
		InvoiceNo: fmt.Sprintf("INV%d", node.Generate()),
		SchoolID:  schoolID,
		StudentID: node.Generate(),
		UserID:    node.Generate(),
		AcYear:    acYear,
		CourseID:  node.Generate(),
		Source:    invoicedomain.SourceManual,
		Total:     total,
		PaidTotal: paid,
		Balance:   total - paid,
		Status:    status,
	}
	require.NoError(t, db.Create(&inv).Error)
}

func seedBatch(t *testing.T, db *gorm.DB, node *snowflake.Node, schoolID snowflake.ID, acYear string, status batchdomain.BatchStatus) {
	t.Helper()
	batch := batchdomain.PaymentBatch{
		ID:          node.Generate(),
		BatchNo:     fmt.Sprintf("BATCH%d", node.Generate()),
		SchoolID:    schoolID,
		AcYear:      acYear,
		TotalAmount: 100_00,
		ItemCount:   1,
		Mode:        batchdomain.ModeCash,
		Status:      status,
		CreatedBy:   node.Generate(),
	}
	require.NoError(t, db.Create(&batch).Error)
}

func TestSchoolSummary_AggregatesLedger(t *testing.T) {
	svc, db, node := newTestService(t)
	school := node.Generate()
	other := node.Generate()

	seedInvoice(t, db, node, school, "2026-27", 500_00, 0, invoicedomain.InvoiceStatusIssued)
	seedInvoice(t, db, node, school, "2026-27", 300_00, 120_00, invoicedomain.InvoiceStatusPartial)
	seedInvoice(t, db, node, school, "2026-27", 200_00, 200_00, invoicedomain.InvoiceStatusPaid)
	// excluded: cancelled, other school, other year
	seedInvoice(t, db, node, school, "2026-27", 400_00, 0, invoicedomain.InvoiceStatusCancelled)
	seedInvoice(t, db, node, other, "2026-27", 900_00, 0, invoicedomain.InvoiceStatusIssued)
	seedInvoice(t, db, node, school, "2025-26", 900_00, 0, invoicedomain.InvoiceStatusIssued)

	seedBatch(t, db, node, school, "2026-27", batchdomain.BatchStatusPending)
	seedBatch(t, db, node, school, "2026-27", batchdomain.BatchStatusApproved)
	seedBatch(t, db, node, other, "2026-27", batchdomain.BatchStatusPending)

	summary, err := svc.SchoolSummary(context.Background(), school, "2026-27")
	require.NoError(t, err)

	assert.Equal(t, school, summary.SchoolID)
	assert.Equal(t, "2026-27", summary.AcYear)
	assert.Equal(t, int64(1000_00), summary.BilledTotal)
	assert.Equal(t, int64(320_00), summary.PaidTotal)
	assert.Equal(t, int64(680_00), summary.BalanceTotal)
	assert.Equal(t, int64(2), summary.DueInvoices)
	assert.Equal(t, int64(1), summary.PendingBatches)
}

func TestSchoolSummary_EmptySchool(t *testing.T) {
	svc, _, node := newTestService(t)

	summary, err := svc.SchoolSummary(context.Background(), node.Generate(), "2026-27")
	require.NoError(t, err)

	assert.Zero(t, summary.BilledTotal)
	assert.Zero(t, summary.DueInvoices)
	assert.Zero(t, summary.PendingBatches)
}

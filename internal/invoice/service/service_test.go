package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	feeservice "github.com/Shihab-md/unis-server-sub000/internal/feestructure/service"
	feedomain "github.com/Shihab-md/unis-server-sub000/internal/feestructure/domain"
	invoicedomain "github.com/Shihab-md/unis-server-sub000/internal/invoice/domain"
	batchdomain "github.com/Shihab-md/unis-server-sub000/internal/paymentbatch/domain"
	schooldomain "github.com/Shihab-md/unis-server-sub000/internal/school/domain"
	seqdomain "github.com/Shihab-md/unis-server-sub000/internal/sequence/domain"
)

type fixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	svc     invoicedomain.Service
	feeSvc  feedomain.Service
	school  snowflake.ID
	student snowflake.ID
	course  snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&seqdomain.SequenceCounter{},
		&schooldomain.School{},
		&schooldomain.Student{},
		&feedomain.FeeStructure{},
		&invoicedomain.FeeInvoice{},
		&invoicedomain.FeeInvoiceItem{},
		&batchdomain.PaymentBatch{},
		&batchdomain.PaymentBatchItem{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	feeSvc := feeservice.NewService(feeservice.ServiceParam{DB: db, Log: zap.NewNop(), GenID: node})
	svc := NewService(ServiceParam{DB: db, Log: zap.NewNop(), GenID: node, FeeSvc: feeSvc})

	f := &fixture{
		db:      db,
		node:    node,
		svc:     svc,
		feeSvc:  feeSvc,
		school:  node.Generate(),
		student: node.Generate(),
		course:  node.Generate(),
	}

	require.NoError(t, db.Create(&schooldomain.School{ID: f.school, Code: "NSW001", Name: "Niswan One", Active: true}).Error)
	require.NoError(t, db.Create(&schooldomain.Student{ID: f.student, SchoolID: f.school, RollNo: "R001", Name: "Aisha", Active: true}).Error)
	return f
}

func (f *fixture) seedStructure(t *testing.T, heads []feedomain.FeeHead) {
	t.Helper()
	_, err := f.feeSvc.Upsert(context.Background(), feedomain.UpsertRequest{
		SchoolID: &f.school,
		AcYear:   "2026-27",
		CourseID: f.course,
		Heads:    heads,
		Active:   true,
	})
	require.NoError(t, err)
}

func (f *fixture) issueInvoice(t *testing.T) invoicedomain.FeeInvoice {
	t.Helper()
	inv, err := f.svc.CreateFromStructure(context.Background(), invoicedomain.CreateRequest{
		SchoolID:  f.school,
		StudentID: f.student,
		UserID:    f.node.Generate(),
		AcYear:    "2026-27",
		CourseID:  f.course,
		Source:    invoicedomain.SourceAdmission,
	})
	require.NoError(t, err)
	return inv
}

func TestCreateFromStructure_MaterializesHeads(t *testing.T) {
	f := newFixture(t)
	f.seedStructure(t, []feedomain.FeeHead{
		{HeadCode: "TUITION", HeadName: "Tuition", Amount: 500_00},
		{HeadCode: "HOSTEL", HeadName: "Hostel", Amount: 300_00},
	})

	inv := f.issueInvoice(t)
	assert.Equal(t, "INV000000001", inv.InvoiceNo)
	assert.Equal(t, int64(800_00), inv.Total)
	assert.Equal(t, int64(800_00), inv.Balance)
	assert.Equal(t, int64(0), inv.PaidTotal)
	assert.Equal(t, invoicedomain.InvoiceStatusIssued, inv.Status)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, 0, inv.Items[0].Position)
	assert.Equal(t, 1, inv.Items[1].Position)
}

func TestCreateFromStructure_SkipsOptionalHeads(t *testing.T) {
	f := newFixture(t)
	f.seedStructure(t, []feedomain.FeeHead{
		{HeadCode: "TUITION", HeadName: "Tuition", Amount: 500_00},
		{HeadCode: "TRANSPORT", HeadName: "Transport", Amount: 120_00, IsOptional: true},
	})

	inv := f.issueInvoice(t)
	assert.Equal(t, int64(500_00), inv.Total)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, "TUITION", inv.Items[0].HeadCode)
}

func TestCreateFromStructure_StudentMismatch(t *testing.T) {
	f := newFixture(t)
	f.seedStructure(t, []feedomain.FeeHead{{HeadCode: "TUITION", HeadName: "Tuition", Amount: 500_00}})

	otherSchool := f.node.Generate()
	require.NoError(t, f.db.Create(&schooldomain.School{ID: otherSchool, Code: "NSW002", Name: "Niswan Two", Active: true}).Error)

	_, err := f.svc.CreateFromStructure(context.Background(), invoicedomain.CreateRequest{
		SchoolID:  otherSchool,
		StudentID: f.student,
		UserID:    f.node.Generate(),
		AcYear:    "2026-27",
		CourseID:  f.course,
		Source:    invoicedomain.SourceAdmission,
	})
	assert.ErrorIs(t, err, invoicedomain.ErrStudentMismatch)
}

func TestApplyPayment_WaterfallAcrossItems(t *testing.T) {
	f := newFixture(t)
	f.seedStructure(t, []feedomain.FeeHead{
		{HeadCode: "TUITION", HeadName: "Tuition", Amount: 100_00},
		{HeadCode: "HOSTEL", HeadName: "Hostel", Amount: 50_00},
	})
	inv := f.issueInvoice(t)

	err := f.db.Transaction(func(tx *gorm.DB) error {
		applied, err := f.svc.ApplyPayment(context.Background(), tx, &inv, 120_00, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(120_00), applied)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, int64(100_00), inv.Items[0].PaidAmount)
	assert.Equal(t, int64(20_00), inv.Items[1].PaidAmount)
	assert.Equal(t, int64(30_00), inv.Balance)
	assert.Equal(t, invoicedomain.InvoiceStatusPartial, inv.Status)

	stored, err := f.svc.Get(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(120_00), stored.PaidTotal)
	assert.Equal(t, int64(30_00), stored.Balance)
	assert.Equal(t, invoicedomain.InvoiceStatusPartial, stored.Status)
}

func TestApplyPayment_FullSettlementMarksPaid(t *testing.T) {
	f := newFixture(t)
	f.seedStructure(t, []feedomain.FeeHead{{HeadCode: "TUITION", HeadName: "Tuition", Amount: 150_00}})
	inv := f.issueInvoice(t)

	err := f.db.Transaction(func(tx *gorm.DB) error {
		_, err := f.svc.ApplyPayment(context.Background(), tx, &inv, 150_00, nil)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, invoicedomain.InvoiceStatusPaid, inv.Status)
	assert.Equal(t, int64(0), inv.Balance)
}

func TestApplyPayment_AllocationsHonorHeadCapacity(t *testing.T) {
	f := newFixture(t)
	f.seedStructure(t, []feedomain.FeeHead{
		{HeadCode: "TUITION", HeadName: "Tuition", Amount: 100_00},
		{HeadCode: "HOSTEL", HeadName: "Hostel", Amount: 50_00},
	})
	inv := f.issueInvoice(t)

	err := f.db.Transaction(func(tx *gorm.DB) error {
		applied, err := f.svc.ApplyPayment(context.Background(), tx, &inv, 60_00, []invoicedomain.HeadAllocation{
			{HeadCode: "HOSTEL", Amount: 40_00},
			{HeadCode: "TUITION", Amount: 20_00},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(60_00), applied)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, int64(20_00), inv.Items[0].PaidAmount)
	assert.Equal(t, int64(40_00), inv.Items[1].PaidAmount)
}

func TestApplyPayment_CancelledAndSettledGuards(t *testing.T) {
	f := newFixture(t)
	f.seedStructure(t, []feedomain.FeeHead{{HeadCode: "TUITION", HeadName: "Tuition", Amount: 100_00}})
	inv := f.issueInvoice(t)

	_ = f.db.Transaction(func(tx *gorm.DB) error {
		_, err := f.svc.ApplyPayment(context.Background(), tx, &inv, 0, nil)
		assert.ErrorIs(t, err, invoicedomain.ErrNothingToApply)

		cancelled := inv
		cancelled.Status = invoicedomain.InvoiceStatusCancelled
		_, err = f.svc.ApplyPayment(context.Background(), tx, &cancelled, 50_00, nil)
		assert.ErrorIs(t, err, invoicedomain.ErrCancelled)

		settled := inv
		settled.Status = invoicedomain.InvoiceStatusPaid
		settled.Balance = 0
		_, err = f.svc.ApplyPayment(context.Background(), tx, &settled, 50_00, nil)
		assert.ErrorIs(t, err, invoicedomain.ErrAlreadySettled)
		return nil
	})
}

func TestListDue_ExcludesPendingBatchInvoices(t *testing.T) {
	f := newFixture(t)
	f.seedStructure(t, []feedomain.FeeHead{{HeadCode: "TUITION", HeadName: "Tuition", Amount: 100_00}})
	held := f.issueInvoice(t)
	free := f.issueInvoice(t)

	batchID := f.node.Generate()
	require.NoError(t, f.db.Create(&batchdomain.PaymentBatch{
		ID:        batchID,
		BatchNo:   "BATCH000000001",
		SchoolID:  f.school,
		AcYear:    "2026-27",
		Status:    batchdomain.BatchStatusPending,
		CreatedBy: f.node.Generate(),
	}).Error)
	require.NoError(t, f.db.Create(&batchdomain.PaymentBatchItem{
		ID:        f.node.Generate(),
		BatchID:   batchID,
		SchoolID:  f.school,
		AcYear:    "2026-27",
		InvoiceID: held.ID,
		StudentID: f.student,
		Amount:    100_00,
		Status:    batchdomain.ItemStatusPending,
	}).Error)

	due, err := f.svc.ListDue(context.Background(), invoicedomain.ListDueRequest{
		SchoolID: f.school,
		AcYear:   "2026-27",
	})
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, free.ID, due[0].ID)

	// Once the batch reaches a terminal state the invoice is payable again.
	require.NoError(t, f.db.Model(&batchdomain.PaymentBatch{}).
		Where("id = ?", batchID).
		Update("status", batchdomain.BatchStatusRejected).Error)

	due, err = f.svc.ListDue(context.Background(), invoicedomain.ListDueRequest{
		SchoolID: f.school,
		AcYear:   "2026-27",
	})
	require.NoError(t, err)
	assert.Len(t, due, 2)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	f.seedStructure(t, []feedomain.FeeHead{{HeadCode: "TUITION", HeadName: "Tuition", Amount: 100_00}})
	inv := f.issueInvoice(t)

	require.NoError(t, f.svc.Cancel(context.Background(), inv.ID))

	stored, err := f.svc.Get(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusCancelled, stored.Status)

	assert.ErrorIs(t, f.svc.Cancel(context.Background(), inv.ID), invoicedomain.ErrNotFound)
	assert.ErrorIs(t, f.svc.Cancel(context.Background(), f.node.Generate()), invoicedomain.ErrNotFound)
}

func TestDeriveStatus(t *testing.T) {
	assert.Equal(t, invoicedomain.InvoiceStatusIssued, invoicedomain.DeriveStatus(100, 0))
	assert.Equal(t, invoicedomain.InvoiceStatusPartial, invoicedomain.DeriveStatus(100, 40))
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, invoicedomain.DeriveStatus(100, 100))
}

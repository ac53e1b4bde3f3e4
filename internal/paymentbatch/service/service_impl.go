package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Shihab-md/unis-server-sub000/internal/cache"
	dashboarddomain "github.com/Shihab-md/unis-server-sub000/internal/dashboard/domain"
	invoicedomain "github.com/Shihab-md/unis-server-sub000/internal/invoice/domain"
	batchdomain "github.com/Shihab-md/unis-server-sub000/internal/paymentbatch/domain"
	"github.com/Shihab-md/unis-server-sub000/internal/sequence"
	seqdomain "github.com/Shihab-md/unis-server-sub000/internal/sequence/domain"
	"github.com/Shihab-md/unis-server-sub000/pkg/db"
)

const (
	batchNoPrefix   = "BATCH"
	receiptNoPrefix = "RCT"
	numberPad       = 9
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	InvoiceSvc invoicedomain.Service
	Cache      *cache.Store
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	invoiceSvc invoicedomain.Service
	cache      *cache.Store
}

func NewService(p ServiceParam) batchdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("paymentbatch.service"),
		genID:      p.GenID,
		invoiceSvc: p.InvoiceSvc,
		cache:      p.Cache,
	}
}

func (s *Service) Create(ctx context.Context, input batchdomain.CreateInput) (batchdomain.CreateResult, error) {
	if input.Mode == "" {
		input.Mode = batchdomain.ModeCash
	}
	if err := s.validateShape(input); err != nil {
		return batchdomain.CreateResult{}, err
	}

	if key := strings.TrimSpace(input.IdempotencyKey); key != "" {
		existing, err := s.findByIdempotencyKey(ctx, key)
		if err != nil {
			return batchdomain.CreateResult{}, err
		}
		if existing != nil {
			return batchdomain.CreateResult{BatchID: existing.ID, BatchNo: existing.BatchNo, Replayed: true}, nil
		}
	}

	// Validate against the ledger before opening the transaction: every
	// referenced invoice must exist, belong to the batch's school, be
	// payable, and cover the submitted amount.
	if err := s.validateAgainstLedger(ctx, input); err != nil {
		return batchdomain.CreateResult{}, err
	}

	var result batchdomain.CreateResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batchNo, err := sequence.WithTx(tx).NextFormatted(ctx, seqdomain.SeqBatch, batchNoPrefix, numberPad)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		var total int64
		for _, item := range input.Items {
			total += item.Amount
		}

		batch := batchdomain.PaymentBatch{
			ID:          s.genID.Generate(),
			BatchNo:     batchNo,
			SchoolID:    input.SchoolID,
			AcYear:      input.AcYear,
			TotalAmount: total,
			ItemCount:   len(input.Items),
			Mode:        input.Mode,
			ReferenceNo: strings.TrimSpace(input.ReferenceNo),
			ProofURL:    strings.TrimSpace(input.ProofURL),
			PaidDate:    input.PaidDate,
			Status:      batchdomain.BatchStatusPending,
			CreatedBy:   input.CreatedBy,
			Remarks:     strings.TrimSpace(input.Remarks),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if key := strings.TrimSpace(input.IdempotencyKey); key != "" {
			batch.IdempotencyKey = &key
		}

		if err := tx.WithContext(ctx).Create(&batch).Error; err != nil {
			return err
		}

		items := make([]batchdomain.PaymentBatchItem, 0, len(input.Items))
		for _, in := range input.Items {
			item := batchdomain.PaymentBatchItem{
				ID:        s.genID.Generate(),
				BatchID:   batch.ID,
				SchoolID:  input.SchoolID,
				AcYear:    input.AcYear,
				InvoiceID: in.InvoiceID,
				StudentID: in.StudentID,
				Amount:    in.Amount,
				Status:    batchdomain.ItemStatusPending,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if len(in.Allocations) > 0 {
				encoded, err := json.Marshal(in.Allocations)
				if err != nil {
					return fmt.Errorf("encode allocations: %w", err)
				}
				item.Allocations = encoded
			}
			items = append(items, item)
		}
		if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
			return err
		}

		result = batchdomain.CreateResult{BatchID: batch.ID, BatchNo: batch.BatchNo}
		return nil
	})
	if err != nil {
		// A concurrent retry with the same idempotency key loses the
		// insert race; hand back the batch that won.
		if key := strings.TrimSpace(input.IdempotencyKey); key != "" && db.IsDuplicateKeyErr(err) {
			existing, findErr := s.findByIdempotencyKey(ctx, key)
			if findErr == nil && existing != nil {
				return batchdomain.CreateResult{BatchID: existing.ID, BatchNo: existing.BatchNo, Replayed: true}, nil
			}
		}
		return batchdomain.CreateResult{}, err
	}

	s.log.Info("payment batch submitted",
		zap.String("batch_no", result.BatchNo),
		zap.String("school_id", input.SchoolID.String()),
		zap.Int("items", len(input.Items)),
	)
	return result, nil
}

func (s *Service) validateShape(input batchdomain.CreateInput) error {
	if input.SchoolID == 0 {
		return batchdomain.Validationf("schoolId is required")
	}
	if strings.TrimSpace(input.AcYear) == "" {
		return batchdomain.Validationf("acYear is required")
	}
	if len(input.Items) == 0 {
		return batchdomain.Validationf("batch needs at least one item")
	}
	if !input.Mode.Valid() {
		return batchdomain.Validationf("unknown payment mode %q", string(input.Mode))
	}

	seen := make(map[snowflake.ID]struct{}, len(input.Items))
	for i, item := range input.Items {
		if item.InvoiceID == 0 {
			return batchdomain.Validationf("item %d: invoiceId is required", i)
		}
		if item.StudentID == 0 {
			return batchdomain.Validationf("item %d: studentId is required", i)
		}
		if item.Amount <= 0 {
			return batchdomain.Validationf("item %d: amount must be positive", i)
		}
		if _, dup := seen[item.InvoiceID]; dup {
			return batchdomain.Validationf("invoice %s is referenced more than once", item.InvoiceID.String())
		}
		seen[item.InvoiceID] = struct{}{}

		if len(item.Allocations) > 0 {
			var sum int64
			for _, alloc := range item.Allocations {
				if strings.TrimSpace(alloc.HeadCode) == "" {
					return batchdomain.Validationf("item %d: allocation head code is required", i)
				}
				if alloc.Amount <= 0 {
					return batchdomain.Validationf("item %d: allocation amount must be positive", i)
				}
				sum += alloc.Amount
			}
			// Amounts are integer minor units, so this comparison is
			// exact to the cent.
			if sum != item.Amount {
				return batchdomain.Validationf("item %d: allocations sum to %d, expected %d", i, sum, item.Amount)
			}
		}
	}
	return nil
}

func (s *Service) validateAgainstLedger(ctx context.Context, input batchdomain.CreateInput) error {
	ids := make([]snowflake.ID, 0, len(input.Items))
	for _, item := range input.Items {
		ids = append(ids, item.InvoiceID)
	}

	invoices, err := s.invoiceSvc.FindByIDs(ctx, s.db, ids)
	if err != nil {
		return err
	}
	byID := make(map[snowflake.ID]invoicedomain.FeeInvoice, len(invoices))
	for _, invoice := range invoices {
		byID[invoice.ID] = invoice
	}

	for _, item := range input.Items {
		invoice, ok := byID[item.InvoiceID]
		if !ok {
			return batchdomain.Validationf("invoice %s not found", item.InvoiceID.String())
		}
		if invoice.SchoolID != input.SchoolID {
			return batchdomain.Validationf("invoice %s belongs to another school", invoice.InvoiceNo)
		}
		if invoice.Status == invoicedomain.InvoiceStatusCancelled {
			return batchdomain.Validationf("invoice %s is cancelled", invoice.InvoiceNo)
		}
		if invoice.Balance <= 0 {
			return batchdomain.Validationf("invoice %s has no outstanding balance", invoice.InvoiceNo)
		}
		if item.Amount > invoice.Balance {
			return batchdomain.Validationf("invoice %s: amount %d exceeds balance %d", invoice.InvoiceNo, item.Amount, invoice.Balance)
		}
		if invoice.StudentID != item.StudentID {
			return batchdomain.Validationf("invoice %s does not belong to student %s", invoice.InvoiceNo, item.StudentID.String())
		}
	}
	return nil
}

func (s *Service) findByIdempotencyKey(ctx context.Context, key string) (*batchdomain.PaymentBatch, error) {
	var batch batchdomain.PaymentBatch
	err := s.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&batch).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

// Approve settles a pending batch. The status claim, receipt allocation,
// item settlements and per-item outcome records share one transaction;
// individual item failures are folded into the result instead of aborting
// the commit.
func (s *Service) Approve(ctx context.Context, batchID, approvedBy snowflake.ID) (batchdomain.ApplyResult, error) {
	var (
		result   batchdomain.ApplyResult
		schoolID snowflake.ID
		acYear   string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, err := s.loadBatch(ctx, tx, batchID)
		if err != nil {
			return err
		}
		schoolID = batch.SchoolID
		acYear = batch.AcYear

		receiptNo, err := sequence.WithTx(tx).NextFormatted(ctx, seqdomain.SeqReceipt, receiptNoPrefix, numberPad)
		if err != nil {
			return err
		}

		// The conditional update is the concurrency guard: of two racing
		// approvals only one moves the row out of PENDING_APPROVAL, the
		// other sees zero rows and fails with ErrInvalidState.
		now := time.Now().UTC()
		claim := tx.WithContext(ctx).
			Model(&batchdomain.PaymentBatch{}).
			Where("id = ? AND status = ?", batchID, batchdomain.BatchStatusPending).
			Updates(map[string]any{
				"status":         batchdomain.BatchStatusApproved,
				"receipt_number": receiptNo,
				"approved_by":    approvedBy,
				"approved_at":    now,
				"updated_at":     now,
			})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return batchdomain.ErrInvalidState
		}

		items, err := s.loadItems(ctx, tx, batchID)
		if err != nil {
			return err
		}

		ids := make([]snowflake.ID, 0, len(items))
		for _, item := range items {
			ids = append(ids, item.InvoiceID)
		}
		invoices, err := s.invoiceSvc.FindByIDs(ctx, tx, ids)
		if err != nil {
			return err
		}
		byID := make(map[snowflake.ID]*invoicedomain.FeeInvoice, len(invoices))
		for i := range invoices {
			byID[invoices[i].ID] = &invoices[i]
		}

		for i := range items {
			item := &items[i]
			applyErr := s.applyItem(ctx, tx, batch, item, byID[item.InvoiceID])
			if applyErr != nil {
				item.Status = batchdomain.ItemStatusFailed
				item.Error = applyErr.Error()
				result.Failed++
			} else {
				item.Status = batchdomain.ItemStatusApplied
				item.Error = ""
				result.Applied++
			}
			if err := s.persistItemOutcome(ctx, tx, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return batchdomain.ApplyResult{}, err
	}

	s.cache.Delete(ctx, dashboarddomain.SummaryCacheKey(schoolID, acYear))
	s.log.Info("payment batch approved",
		zap.String("batch_id", batchID.String()),
		zap.Int("applied", result.Applied),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// applyItem re-validates and settles one item. Every returned error is a
// per-item outcome, recorded and never re-thrown past the item boundary.
func (s *Service) applyItem(ctx context.Context, tx *gorm.DB, batch *batchdomain.PaymentBatch, item *batchdomain.PaymentBatchItem, invoice *invoicedomain.FeeInvoice) error {
	if invoice == nil {
		return fmt.Errorf("invoice %s no longer exists", item.InvoiceID.String())
	}
	if invoice.Status == invoicedomain.InvoiceStatusCancelled {
		return fmt.Errorf("invoice %s was cancelled", invoice.InvoiceNo)
	}
	if invoice.SchoolID != batch.SchoolID || invoice.AcYear != batch.AcYear {
		return fmt.Errorf("invoice %s no longer matches the batch scope", invoice.InvoiceNo)
	}
	if invoice.Balance <= 0 {
		return fmt.Errorf("invoice %s has no outstanding balance", invoice.InvoiceNo)
	}

	var allocations []invoicedomain.HeadAllocation
	if len(item.Allocations) > 0 {
		if err := json.Unmarshal(item.Allocations, &allocations); err != nil {
			return fmt.Errorf("decode allocations: %w", err)
		}
	}

	_, err := s.invoiceSvc.ApplyPayment(ctx, tx, invoice, item.Amount, allocations)
	return err
}

func (s *Service) persistItemOutcome(ctx context.Context, tx *gorm.DB, item *batchdomain.PaymentBatchItem) error {
	return tx.WithContext(ctx).
		Model(&batchdomain.PaymentBatchItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"status":     item.Status,
			"error":      item.Error,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (s *Service) Reject(ctx context.Context, batchID, approvedBy snowflake.ID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return batchdomain.Validationf("rejection reason is required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadBatch(ctx, tx, batchID); err != nil {
			return err
		}

		now := time.Now().UTC()
		claim := tx.WithContext(ctx).
			Model(&batchdomain.PaymentBatch{}).
			Where("id = ? AND status = ?", batchID, batchdomain.BatchStatusPending).
			Updates(map[string]any{
				"status":          batchdomain.BatchStatusRejected,
				"rejected_reason": reason,
				"approved_by":     approvedBy,
				"approved_at":     now,
				"updated_at":      now,
			})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return batchdomain.ErrInvalidState
		}

		// Rejection is total: every item carries the batch's reason.
		return tx.WithContext(ctx).
			Model(&batchdomain.PaymentBatchItem{}).
			Where("batch_id = ?", batchID).
			Updates(map[string]any{
				"status":     batchdomain.ItemStatusRejected,
				"error":      reason,
				"updated_at": now,
			}).Error
	})
	if err != nil {
		return err
	}

	s.log.Info("payment batch rejected",
		zap.String("batch_id", batchID.String()),
		zap.String("reason", reason),
	)
	return nil
}

func (s *Service) List(ctx context.Context, filter batchdomain.ListFilter) ([]batchdomain.PaymentBatch, error) {
	query := s.db.WithContext(ctx).Model(&batchdomain.PaymentBatch{})
	if len(filter.SchoolIDs) > 0 {
		query = query.Where("school_id IN ?", filter.SchoolIDs)
	}
	if year := strings.TrimSpace(filter.AcYear); year != "" {
		query = query.Where("ac_year = ?", year)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var batches []batchdomain.PaymentBatch
	if err := query.Order("created_at DESC").Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

func (s *Service) Get(ctx context.Context, batchID snowflake.ID) (batchdomain.PaymentBatch, error) {
	batch, err := s.loadBatch(ctx, s.db, batchID)
	if err != nil {
		return batchdomain.PaymentBatch{}, err
	}
	items, err := s.loadItems(ctx, s.db, batchID)
	if err != nil {
		return batchdomain.PaymentBatch{}, err
	}
	batch.Items = items
	return *batch, nil
}

func (s *Service) loadBatch(ctx context.Context, tx *gorm.DB, batchID snowflake.ID) (*batchdomain.PaymentBatch, error) {
	var batch batchdomain.PaymentBatch
	err := tx.WithContext(ctx).Where("id = ?", batchID).First(&batch).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, batchdomain.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

func (s *Service) loadItems(ctx context.Context, tx *gorm.DB, batchID snowflake.ID) ([]batchdomain.PaymentBatchItem, error) {
	var items []batchdomain.PaymentBatchItem
	err := tx.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

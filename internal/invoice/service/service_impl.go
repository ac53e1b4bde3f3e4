package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	feedomain "github.com/Shihab-md/unis-server-sub000/internal/feestructure/domain"
	invoicedomain "github.com/Shihab-md/unis-server-sub000/internal/invoice/domain"
	schooldomain "github.com/Shihab-md/unis-server-sub000/internal/school/domain"
	"github.com/Shihab-md/unis-server-sub000/internal/sequence"
	seqdomain "github.com/Shihab-md/unis-server-sub000/internal/sequence/domain"
	"github.com/Shihab-md/unis-server-sub000/pkg/repository"
)

const invoiceNoPrefix = "INV"
const invoiceNoPad = 9

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	FeeSvc feedomain.Service
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID       *snowflake.Node
	feeSvc      feedomain.Service
	studentrepo repository.Repository[schooldomain.Student]
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("invoice.service"),
		genID:       p.GenID,
		feeSvc:      p.FeeSvc,
		studentrepo: repository.ProvideStore[schooldomain.Student](p.DB),
	}
}

func (s *Service) CreateFromStructure(ctx context.Context, req invoicedomain.CreateRequest) (invoicedomain.FeeInvoice, error) {
	if req.SchoolID == 0 || req.StudentID == 0 || req.CourseID == 0 || strings.TrimSpace(req.AcYear) == "" {
		return invoicedomain.FeeInvoice{}, invoicedomain.ErrNotFound
	}

	student, err := s.studentrepo.FindOne(ctx, &schooldomain.Student{ID: req.StudentID})
	if err != nil {
		return invoicedomain.FeeInvoice{}, err
	}
	if student == nil {
		return invoicedomain.FeeInvoice{}, invoicedomain.ErrStudentNotFound
	}
	if student.SchoolID != req.SchoolID {
		return invoicedomain.FeeInvoice{}, invoicedomain.ErrStudentMismatch
	}

	_, heads, err := s.feeSvc.Resolve(ctx, req.SchoolID, req.AcYear, req.CourseID)
	if err != nil {
		return invoicedomain.FeeInvoice{}, err
	}

	var created invoicedomain.FeeInvoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoiceNo, err := sequence.WithTx(tx).NextFormatted(ctx, seqdomain.SeqInvoice, invoiceNoPrefix, invoiceNoPad)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		invoice := invoicedomain.FeeInvoice{
			ID:         s.genID.Generate(),
			InvoiceNo:  invoiceNo,
			SchoolID:   req.SchoolID,
			StudentID:  req.StudentID,
			UserID:     req.UserID,
			AcYear:     strings.TrimSpace(req.AcYear),
			AcademicID: req.AcademicID,
			CourseID:   req.CourseID,
			Source:     req.Source,
			DueDate:    req.DueDate,
			Status:     invoicedomain.InvoiceStatusIssued,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		position := 0
		var total int64
		items := make([]invoicedomain.FeeInvoiceItem, 0, len(heads))
		for _, head := range heads {
			if head.IsOptional {
				continue
			}
			items = append(items, invoicedomain.FeeInvoiceItem{
				ID:        s.genID.Generate(),
				InvoiceID: invoice.ID,
				Position:  position,
				HeadCode:  head.HeadCode,
				HeadName:  head.HeadName,
				Amount:    head.Amount,
				NetAmount: head.Amount,
			})
			total += head.Amount
			position++
		}
		invoice.Total = total
		invoice.Balance = total

		if err := tx.WithContext(ctx).Create(&invoice).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
				return err
			}
		}
		invoice.Items = items
		created = invoice
		return nil
	})
	if err != nil {
		return invoicedomain.FeeInvoice{}, err
	}

	s.log.Info("invoice issued",
		zap.String("invoice_no", created.InvoiceNo),
		zap.String("school_id", created.SchoolID.String()),
		zap.String("student_id", created.StudentID.String()),
		zap.Int64("total", created.Total),
	)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (invoicedomain.FeeInvoice, error) {
	invoices, err := s.FindByIDs(ctx, s.db, []snowflake.ID{id})
	if err != nil {
		return invoicedomain.FeeInvoice{}, err
	}
	if len(invoices) == 0 {
		return invoicedomain.FeeInvoice{}, invoicedomain.ErrNotFound
	}
	return invoices[0], nil
}

func (s *Service) ListDue(ctx context.Context, req invoicedomain.ListDueRequest) ([]invoicedomain.FeeInvoice, error) {
	query := s.db.WithContext(ctx).
		Model(&invoicedomain.FeeInvoice{}).
		Where("school_id = ?", req.SchoolID).
		Where("balance > 0").
		Where(`NOT EXISTS (
			SELECT 1 FROM payment_batch_items bi
			JOIN payment_batches b ON b.id = bi.batch_id
			WHERE bi.invoice_id = fee_invoices.id
			  AND b.status = 'PENDING_APPROVAL')`)

	if year := strings.TrimSpace(req.AcYear); year != "" {
		query = query.Where("ac_year = ?", year)
	}
	if req.Status != nil {
		query = query.Where("status = ?", *req.Status)
	} else {
		query = query.Where("status IN ?", []invoicedomain.InvoiceStatus{
			invoicedomain.InvoiceStatusIssued,
			invoicedomain.InvoiceStatusPartial,
		})
	}

	var invoices []invoicedomain.FeeInvoice
	if err := query.Order("created_at").Find(&invoices).Error; err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, s.db, invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *Service) FindByIDs(ctx context.Context, tx *gorm.DB, ids []snowflake.ID) ([]invoicedomain.FeeInvoice, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var invoices []invoicedomain.FeeInvoice
	if err := tx.WithContext(ctx).Where("id IN ?", ids).Find(&invoices).Error; err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, tx, invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *Service) attachItems(ctx context.Context, tx *gorm.DB, invoices []invoicedomain.FeeInvoice) error {
	if len(invoices) == 0 {
		return nil
	}

	ids := make([]snowflake.ID, 0, len(invoices))
	for _, invoice := range invoices {
		ids = append(ids, invoice.ID)
	}

	var items []invoicedomain.FeeInvoiceItem
	err := tx.WithContext(ctx).
		Where("invoice_id IN ?", ids).
		Order("invoice_id, position").
		Find(&items).Error
	if err != nil {
		return err
	}

	byInvoice := make(map[snowflake.ID][]invoicedomain.FeeInvoiceItem, len(invoices))
	for _, item := range items {
		byInvoice[item.InvoiceID] = append(byInvoice[item.InvoiceID], item)
	}
	for i := range invoices {
		invoices[i].Items = byInvoice[invoices[i].ID]
	}
	return nil
}

// ApplyPayment settles amount against the invoice's items inside tx. With
// allocations, each head takes at most its remaining capacity and unknown
// head codes are skipped. Without allocations the payment waterfalls across
// items in position order. Totals and status are recomputed from the items
// before the invoice row is written back.
func (s *Service) ApplyPayment(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.FeeInvoice, amount int64, allocations []invoicedomain.HeadAllocation) (int64, error) {
	if invoice == nil {
		return 0, invoicedomain.ErrNotFound
	}
	if invoice.Status == invoicedomain.InvoiceStatusCancelled {
		return 0, invoicedomain.ErrCancelled
	}
	if amount <= 0 {
		return 0, invoicedomain.ErrNothingToApply
	}
	if invoice.Balance <= 0 {
		return 0, invoicedomain.ErrAlreadySettled
	}

	// Balance may have shrunk since submission.
	payAmount := amount
	if payAmount > invoice.Balance {
		payAmount = invoice.Balance
	}

	var applied int64
	if len(allocations) > 0 {
		applied = applyAllocations(invoice.Items, allocations)
	} else {
		applied = applyWaterfall(invoice.Items, payAmount)
	}

	for i := range invoice.Items {
		item := &invoice.Items[i]
		err := tx.WithContext(ctx).
			Model(&invoicedomain.FeeInvoiceItem{}).
			Where("id = ?", item.ID).
			Update("paid_amount", item.PaidAmount).Error
		if err != nil {
			return 0, err
		}
	}

	invoice.Recompute()
	invoice.UpdatedAt = time.Now().UTC()
	err := tx.WithContext(ctx).
		Model(&invoicedomain.FeeInvoice{}).
		Where("id = ?", invoice.ID).
		Updates(map[string]any{
			"paid_total": invoice.PaidTotal,
			"balance":    invoice.Balance,
			"status":     invoice.Status,
			"updated_at": invoice.UpdatedAt,
		}).Error
	if err != nil {
		return 0, err
	}
	return applied, nil
}

func applyAllocations(items []invoicedomain.FeeInvoiceItem, allocations []invoicedomain.HeadAllocation) int64 {
	var applied int64
	for _, alloc := range allocations {
		if alloc.Amount <= 0 {
			continue
		}
		for i := range items {
			if items[i].HeadCode != alloc.HeadCode {
				continue
			}
			capacity := items[i].NetAmount - items[i].PaidAmount
			if capacity <= 0 {
				break
			}
			take := alloc.Amount
			if take > capacity {
				take = capacity
			}
			items[i].PaidAmount += take
			applied += take
			break
		}
	}
	return applied
}

func applyWaterfall(items []invoicedomain.FeeInvoiceItem, payAmount int64) int64 {
	remaining := payAmount
	for i := range items {
		if remaining <= 0 {
			break
		}
		capacity := items[i].NetAmount - items[i].PaidAmount
		if capacity <= 0 {
			continue
		}
		take := remaining
		if take > capacity {
			take = capacity
		}
		items[i].PaidAmount += take
		remaining -= take
	}
	return payAmount - remaining
}

func (s *Service) Cancel(ctx context.Context, id snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.WithContext(ctx).
			Model(&invoicedomain.FeeInvoice{}).
			Where("id = ? AND status <> ?", id, invoicedomain.InvoiceStatusCancelled).
			Updates(map[string]any{
				"status":     invoicedomain.InvoiceStatusCancelled,
				"updated_at": time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return invoicedomain.ErrNotFound
		}
		return nil
	})
}

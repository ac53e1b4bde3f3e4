package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Shihab-md/unis-server-sub000/internal/cache"
	"github.com/Shihab-md/unis-server-sub000/internal/config"
	"github.com/Shihab-md/unis-server-sub000/internal/dashboard/domain"
	invoicedomain "github.com/Shihab-md/unis-server-sub000/internal/invoice/domain"
	batchdomain "github.com/Shihab-md/unis-server-sub000/internal/paymentbatch/domain"
)

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Cache  *cache.Store
	Config config.Config
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	cache *cache.Store
	cfg   config.Config
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("dashboard.service"),
		cache: p.Cache,
		cfg:   p.Config,
	}
}

func (s *Service) SchoolSummary(ctx context.Context, schoolID snowflake.ID, acYear string) (domain.SchoolSummary, error) {
	key := domain.SummaryCacheKey(schoolID, acYear)

	var summary domain.SchoolSummary
	if s.cache.GetJSON(ctx, key, &summary) {
		return summary, nil
	}

	summary, err := s.compute(ctx, schoolID, acYear)
	if err != nil {
		return domain.SchoolSummary{}, err
	}

	s.cache.SetJSON(ctx, key, summary, s.cfg.DashboardCacheTTL)
	return summary, nil
}

func (s *Service) compute(ctx context.Context, schoolID snowflake.ID, acYear string) (domain.SchoolSummary, error) {
	summary := domain.SchoolSummary{SchoolID: schoolID, AcYear: acYear}

	var totals struct {
		Billed  int64
		Paid    int64
		Balance int64
	}
	err := s.db.WithContext(ctx).
		Model(&invoicedomain.FeeInvoice{}).
		Select("COALESCE(SUM(total), 0) AS billed, COALESCE(SUM(paid_total), 0) AS paid, COALESCE(SUM(balance), 0) AS balance").
		Where("school_id = ? AND ac_year = ? AND status <> ?", schoolID, acYear, invoicedomain.InvoiceStatusCancelled).
		Scan(&totals).Error
	if err != nil {
		return domain.SchoolSummary{}, err
	}
	summary.BilledTotal = totals.Billed
	summary.PaidTotal = totals.Paid
	summary.BalanceTotal = totals.Balance

	err = s.db.WithContext(ctx).
		Model(&invoicedomain.FeeInvoice{}).
		Where("school_id = ? AND ac_year = ? AND balance > 0 AND status IN ?", schoolID, acYear,
			[]invoicedomain.InvoiceStatus{invoicedomain.InvoiceStatusIssued, invoicedomain.InvoiceStatusPartial}).
		Count(&summary.DueInvoices).Error
	if err != nil {
		return domain.SchoolSummary{}, err
	}

	err = s.db.WithContext(ctx).
		Model(&batchdomain.PaymentBatch{}).
		Where("school_id = ? AND ac_year = ? AND status = ?", schoolID, acYear, batchdomain.BatchStatusPending).
		Count(&summary.PendingBatches).Error
	if err != nil {
		return domain.SchoolSummary{}, err
	}

	return summary, nil
}

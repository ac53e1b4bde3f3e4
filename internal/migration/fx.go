package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	authdomain "github.com/Shihab-md/unis-server-sub000/internal/auth/domain"
	"github.com/Shihab-md/unis-server-sub000/internal/config"
	feedomain "github.com/Shihab-md/unis-server-sub000/internal/feestructure/domain"
	invoicedomain "github.com/Shihab-md/unis-server-sub000/internal/invoice/domain"
	batchdomain "github.com/Shihab-md/unis-server-sub000/internal/paymentbatch/domain"
	schooldomain "github.com/Shihab-md/unis-server-sub000/internal/school/domain"
	"github.com/Shihab-md/unis-server-sub000/internal/seed"
	seqdomain "github.com/Shihab-md/unis-server-sub000/internal/sequence/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// golang-migrate's embedded source is Postgres DDL; other
			// dialects build their schema from the models directly.
			if err := conn.AutoMigrate(
				&seqdomain.SequenceCounter{},
				&schooldomain.Supervisor{},
				&schooldomain.School{},
				&schooldomain.Course{},
				&schooldomain.Student{},
				&authdomain.User{},
				&feedomain.FeeStructure{},
				&invoicedomain.FeeInvoice{},
				&invoicedomain.FeeInvoiceItem{},
				&batchdomain.PaymentBatch{},
				&batchdomain.PaymentBatchItem{},
			); err != nil {
				return err
			}
		}

		return seed.EnsureSuperadmin(conn)
	}),
)

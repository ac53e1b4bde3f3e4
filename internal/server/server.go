package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Shihab-md/unis-server-sub000/internal/auth"
	authdomain "github.com/Shihab-md/unis-server-sub000/internal/auth/domain"
	"github.com/Shihab-md/unis-server-sub000/internal/cache"
	"github.com/Shihab-md/unis-server-sub000/internal/config"
	"github.com/Shihab-md/unis-server-sub000/internal/dashboard"
	dashboarddomain "github.com/Shihab-md/unis-server-sub000/internal/dashboard/domain"
	"github.com/Shihab-md/unis-server-sub000/internal/feestructure"
	feedomain "github.com/Shihab-md/unis-server-sub000/internal/feestructure/domain"
	"github.com/Shihab-md/unis-server-sub000/internal/invoice"
	invoicedomain "github.com/Shihab-md/unis-server-sub000/internal/invoice/domain"
	"github.com/Shihab-md/unis-server-sub000/internal/migration"
	"github.com/Shihab-md/unis-server-sub000/internal/observability"
	obslogger "github.com/Shihab-md/unis-server-sub000/internal/observability/logger"
	obsmetrics "github.com/Shihab-md/unis-server-sub000/internal/observability/metrics"
	obstracing "github.com/Shihab-md/unis-server-sub000/internal/observability/tracing"
	"github.com/Shihab-md/unis-server-sub000/internal/paymentbatch"
	batchdomain "github.com/Shihab-md/unis-server-sub000/internal/paymentbatch/domain"
	"github.com/Shihab-md/unis-server-sub000/internal/providers/pdf"
	"github.com/Shihab-md/unis-server-sub000/internal/scope"
)

var Module = fx.Module("http.server",
	config.Module,
	observability.Module,
	cache.Module,
	migration.Module,
	auth.Module,
	scope.Module,
	feestructure.Module,
	invoice.Module,
	paymentbatch.Module,
	dashboard.Module,
	pdf.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(obstracing.GinMiddleware())
	r.Use(metrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node

	authSvc      authdomain.Service
	scopeSvc     scope.Resolver
	feeSvc       feedomain.Service
	invoiceSvc   invoicedomain.Service
	batchSvc     batchdomain.Service
	dashboardSvc dashboarddomain.Service
	pdfRenderer  pdf.Renderer
	metrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	AuthSvc      authdomain.Service
	ScopeSvc     scope.Resolver
	FeeSvc       feedomain.Service
	InvoiceSvc   invoicedomain.Service
	BatchSvc     batchdomain.Service
	DashboardSvc dashboarddomain.Service
	PDFRenderer  pdf.Renderer
	Metrics      *obsmetrics.Metrics
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		log:          p.Log.Named("http.server"),
		genID:        p.GenID,
		authSvc:      p.AuthSvc,
		scopeSvc:     p.ScopeSvc,
		feeSvc:       p.FeeSvc,
		invoiceSvc:   p.InvoiceSvc,
		batchSvc:     p.BatchSvc,
		dashboardSvc: p.DashboardSvc,
		pdfRenderer:  p.PDFRenderer,
		metrics:      p.Metrics,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	authGroup := s.engine.Group("/auth")
	authGroup.POST("/login", s.Login)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	hq := RequireRoles(authdomain.RoleSuperadmin, authdomain.RoleHQUser)
	submitters := RequireRoles(authdomain.RoleSuperadmin, authdomain.RoleHQUser, authdomain.RoleAdmin)

	invoices := api.Group("/invoices")
	invoices.GET("/:schoolId/:acYear", submitters, s.ListDueInvoices)
	invoices.GET("/detail/:invoiceId", s.GetInvoice)
	invoices.POST("", submitters, s.CreateInvoice)
	invoices.POST("/:invoiceId/cancel", hq, s.CancelInvoice)

	batches := api.Group("/payment-batches")
	batches.POST("", submitters, s.CreatePaymentBatch)
	batches.GET("", s.ListPaymentBatches)
	batches.GET("/:batchId", s.GetPaymentBatch)
	batches.POST("/:batchId/approve", hq, s.ApprovePaymentBatch)
	batches.POST("/:batchId/reject", hq, s.RejectPaymentBatch)
	batches.GET("/:batchId/receipt.pdf", s.PaymentBatchReceipt)

	api.GET("/dashboard/school", s.SchoolDashboard)

	fees := api.Group("/fee-structures")
	fees.GET("", s.ListFeeStructures)
	fees.POST("", hq, s.UpsertFeeStructure)
}

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/waterworks/internal/audit/domain"
	billdomain "github.com/smallbiznis/waterworks/internal/bill/domain"
	billrepo "github.com/smallbiznis/waterworks/internal/bill/repository"
	rundomain "github.com/smallbiznis/waterworks/internal/billingrun/domain"
	"github.com/smallbiznis/waterworks/internal/config"
	customerdomain "github.com/smallbiznis/waterworks/internal/customer/domain"
	financedomain "github.com/smallbiznis/waterworks/internal/finance/domain"
	invoicedomain "github.com/smallbiznis/waterworks/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/waterworks/internal/invoice/repository"
	actiondomain "github.com/smallbiznis/waterworks/internal/invoiceaction/domain"
	meterdomain "github.com/smallbiznis/waterworks/internal/meter/domain"
	paymentdomain "github.com/smallbiznis/waterworks/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/waterworks/internal/payment/repository"
	"github.com/smallbiznis/waterworks/internal/providers/pdf"
	"github.com/smallbiznis/waterworks/internal/ratelimit"
	"github.com/smallbiznis/waterworks/pkg/telemetry"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type EngineParams struct {
	fx.In

	Log     *zap.Logger
	Metrics *telemetry.Metrics     `optional:"true"`
	Bucket  *ratelimit.TokenBucket `optional:"true"`
}

func NewEngine(p EngineParams) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(TracingMiddleware())
	if p.Metrics != nil {
		r.Use(MetricsMiddleware(p.Metrics))
	}
	r.Use(ratelimit.Middleware(p.Bucket, p.Metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	billSvc      billdomain.Service
	invoiceSvc   invoicedomain.Service
	paymentSvc   paymentdomain.Service
	actionSvc    actiondomain.Service
	runSvc       rundomain.Service
	financeSvc   financedomain.Service
	meterRepo    meterdomain.Repository
	customerRepo customerdomain.Repository
	invoiceRepo  invoicerepo.Repository
	billRepo     billrepo.Repository
	paymentRepo  paymentrepo.Repository
	auditSvc     auditdomain.Service
	pdf          pdf.Provider
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	BillSvc      billdomain.Service
	InvoiceSvc   invoicedomain.Service
	PaymentSvc   paymentdomain.Service
	ActionSvc    actiondomain.Service
	RunSvc       rundomain.Service
	FinanceSvc   financedomain.Service
	MeterRepo    meterdomain.Repository
	CustomerRepo customerdomain.Repository
	InvoiceRepo  invoicerepo.Repository
	BillRepo     billrepo.Repository
	PaymentRepo  paymentrepo.Repository
	AuditSvc     auditdomain.Service `optional:"true"`
	PDF          pdf.Provider        `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		log:          p.Log.Named("server"),
		genID:        p.GenID,
		billSvc:      p.BillSvc,
		invoiceSvc:   p.InvoiceSvc,
		paymentSvc:   p.PaymentSvc,
		actionSvc:    p.ActionSvc,
		runSvc:       p.RunSvc,
		financeSvc:   p.FinanceSvc,
		meterRepo:    p.MeterRepo,
		customerRepo: p.CustomerRepo,
		invoiceRepo:  p.InvoiceRepo,
		billRepo:     p.BillRepo,
		paymentRepo:  p.PaymentRepo,
		auditSvc:     p.AuditSvc,
		pdf:          p.PDF,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", TenancyMiddleware())

	api.POST("/bills", s.CreateBill)
	api.POST("/bills/batch", s.RunBatch)

	api.POST("/invoices/generate", s.GenerateInvoices)
	api.GET("/invoices/:id", s.GetInvoice)
	api.POST("/invoices/:id/reverse", s.ReverseInvoice)
	api.POST("/invoices/:id/adjust", s.AdjustInvoiceAmount)
	api.POST("/invoices/:id/payments", s.ProcessPayment)
	api.POST("/invoices/:id/apply-overpayment", s.ApplyOverpayment)

	api.POST("/payments/:id/reverse", s.ReversePayment)

	api.GET("/customers/:id/invoices/open", s.ListOpenInvoices)
	api.GET("/customers/:id/statement", s.CustomerStatement)
	api.POST("/customers/:id/recalculate", s.RecalculateCustomer)

	api.POST("/customers", s.CreateCustomer)
	api.POST("/customers/:id/meters", s.AssignMeter)

	api.GET("/invoices/:id/pdf", s.InvoicePDF)
	api.GET("/payments/:id/receipt", s.PaymentReceiptPDF)

	api.GET("/audit", s.ListAuditEntries)
}

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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

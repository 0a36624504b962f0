package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/tradebook/internal/authorization"
	balancedomain "github.com/smallbiznis/tradebook/internal/balance/domain"
	catalogdomain "github.com/smallbiznis/tradebook/internal/catalog/domain"
	"github.com/smallbiznis/tradebook/internal/config"
	counterpartydomain "github.com/smallbiznis/tradebook/internal/counterparty/domain"
	cutoffdomain "github.com/smallbiznis/tradebook/internal/cutoff/domain"
	ledgerdomain "github.com/smallbiznis/tradebook/internal/ledger/domain"
	"github.com/smallbiznis/tradebook/internal/observability"
	obslogger "github.com/smallbiznis/tradebook/internal/observability/logger"
	obstracing "github.com/smallbiznis/tradebook/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/tradebook/internal/order/domain"
	paymentdomain "github.com/smallbiznis/tradebook/internal/payment/domain"
	reportdomain "github.com/smallbiznis/tradebook/internal/report/domain"
	settlementdomain "github.com/smallbiznis/tradebook/internal/settlement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewHTTPMetrics),
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine          *gin.Engine
	loc             *time.Location
	log             *zap.Logger
	authz           authorization.Authorizer
	cutoffSvc       cutoffdomain.Service
	counterpartySvc counterpartydomain.Service
	catalogSvc      catalogdomain.Service
	orderSvc        orderdomain.Service
	settlementSvc   settlementdomain.Coordinator
	ledgerSvc       ledgerdomain.Service
	paymentSvc      paymentdomain.Processor
	balanceSvc      balancedomain.Service
	reportSvc       reportdomain.Engine
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	Authz           authorization.Authorizer
	CutoffSvc       cutoffdomain.Service
	CounterpartySvc counterpartydomain.Service
	CatalogSvc      catalogdomain.Service
	OrderSvc        orderdomain.Service
	SettlementSvc   settlementdomain.Coordinator
	LedgerSvc       ledgerdomain.Service
	PaymentSvc      paymentdomain.Processor
	BalanceSvc      balancedomain.Service
	ReportSvc       reportdomain.Engine
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:          p.Gin,
		loc:             p.Cfg.Location(),
		log:             p.Log.Named("http.server"),
		authz:           p.Authz,
		cutoffSvc:       p.CutoffSvc,
		counterpartySvc: p.CounterpartySvc,
		catalogSvc:      p.CatalogSvc,
		orderSvc:        p.OrderSvc,
		settlementSvc:   p.SettlementSvc,
		ledgerSvc:       p.LedgerSvc,
		paymentSvc:      p.PaymentSvc,
		balanceSvc:      p.BalanceSvc,
		reportSvc:       p.ReportSvc,
	}
}

func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api")
	api.Use(ActorMiddleware())

	api.GET("/cutoff", s.GetCutoff)
	api.GET("/cutoff/history", s.ListCutoffHistory)
	api.POST("/cutoff/open", s.authorize(authorization.ObjectCutoff, authorization.ActionCutoffOpen), s.OpenCutoff)
	api.POST("/cutoff/close", s.authorize(authorization.ObjectCutoff, authorization.ActionCutoffClose), s.CloseCutoff)
	api.POST("/cutoff/reset", s.authorize(authorization.ObjectCutoff, authorization.ActionCutoffReset), s.ResetCutoff)

	api.POST("/counterparties", s.CreateCounterparty)
	api.GET("/counterparties", s.ListCounterparties)
	api.GET("/counterparties/:id", s.GetCounterparty)
	api.POST("/counterparties/:id/activate", s.ActivateCounterparty)
	api.POST("/counterparties/:id/deactivate", s.DeactivateCounterparty)

	api.POST("/products", s.CreateProduct)
	api.GET("/products", s.ListProducts)
	api.GET("/products/:id", s.GetProduct)

	api.POST("/orders", s.PlaceOrder)
	api.GET("/orders", s.ListOrders)
	api.GET("/orders/:number", s.GetOrder)
	api.POST("/orders/:number/confirm", s.ConfirmOrder)
	api.POST("/orders/:number/pend", s.PendOrder)
	api.POST("/orders/:number/resume", s.ResumeOrder)
	api.POST("/orders/:number/reject", s.RejectOrder)
	api.POST("/orders/:number/cancel", s.CancelOrder)
	api.POST("/orders/:number/settle", s.authorize(authorization.ObjectSettlement, authorization.ActionSettle), s.SettleOrder)

	api.GET("/ledgers", s.ListLedgers)
	api.GET("/ledgers/:number", s.GetLedger)

	api.POST("/payments", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentRecord), s.RecordPayment)
	api.GET("/payments", s.ListPayments)
	api.GET("/payments/:number", s.GetPayment)

	api.GET("/balances", s.ListBalances)
	api.GET("/balances/:counterparty_id", s.GetBalance)

	api.GET("/reports/ledgers", s.RollupLedgers)
	api.GET("/reports/orders", s.RollupOrders)
	api.GET("/reports/payments", s.SummarizePayments)
	api.GET("/reports/statement", s.Statement)
}

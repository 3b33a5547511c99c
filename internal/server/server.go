package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	accountdomain "github.com/smallbiznis/dreamforge/internal/account/domain"
	artistdomain "github.com/smallbiznis/dreamforge/internal/artist/domain"
	auditdomain "github.com/smallbiznis/dreamforge/internal/audit/domain"
	authdomain "github.com/smallbiznis/dreamforge/internal/auth/domain"
	"github.com/smallbiznis/dreamforge/internal/authorization"
	"github.com/smallbiznis/dreamforge/internal/config"
	creditpackdomain "github.com/smallbiznis/dreamforge/internal/creditpack/domain"
	generationdomain "github.com/smallbiznis/dreamforge/internal/generation/domain"
	"github.com/smallbiznis/dreamforge/internal/generation/replicate"
	ledgerdomain "github.com/smallbiznis/dreamforge/internal/ledger/domain"
	"github.com/smallbiznis/dreamforge/internal/objectstore"
	"github.com/smallbiznis/dreamforge/internal/observability"
	obsmiddleware "github.com/smallbiznis/dreamforge/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/dreamforge/internal/observability/metrics"
	obstracing "github.com/smallbiznis/dreamforge/internal/observability/tracing"
	"github.com/smallbiznis/dreamforge/internal/payment/checkout"
	paymentdomain "github.com/smallbiznis/dreamforge/internal/payment/domain"
	"github.com/smallbiznis/dreamforge/internal/ratelimit"
	reconciliationdomain "github.com/smallbiznis/dreamforge/internal/reconciliation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.NoMethod(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, errorResponse{Error: errorPayload{
			Type:    "method_not_allowed",
			Message: "method not allowed",
		}})
	})
	r.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
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
			log.Info("http server listening", zap.String("addr", addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type configurable interface {
	Configured() bool
}

type checkoutCreator interface {
	Configured() bool
	Create(ctx context.Context, req checkout.Request) (string, error)
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	identity   authdomain.Service
	accounts   accountdomain.Service
	authz      authorization.Service
	audit      auditdomain.Service
	ledger     ledgerdomain.Service
	generation generationdomain.Service
	artists    artistdomain.Service
	packs      creditpackdomain.Service
	payments   paymentdomain.Service
	checkout   checkoutCreator
	reconciler reconciliationdomain.Service
	replicate  configurable
	store      configurable
	limiter    *ratelimit.GenerationLimiter
	obsMetrics *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Identity   authdomain.Service
	Accounts   accountdomain.Service
	Authz      authorization.Service
	Audit      auditdomain.Service
	Ledger     ledgerdomain.Service
	Generation generationdomain.Service
	Artists    artistdomain.Service
	Packs      creditpackdomain.Service
	Payments   paymentdomain.Service
	Checkout   *checkout.Client
	Reconciler reconciliationdomain.Service
	Replicate  *replicate.Client
	Store      *objectstore.Client
	Limiter    *ratelimit.GenerationLimiter `optional:"true"`
	ObsMetrics *obsmetrics.Metrics          `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		identity:   p.Identity,
		accounts:   p.Accounts,
		authz:      p.Authz,
		audit:      p.Audit,
		ledger:     p.Ledger,
		generation: p.Generation,
		artists:    p.Artists,
		packs:      p.Packs,
		payments:   p.Payments,
		checkout:   p.Checkout,
		reconciler: p.Reconciler,
		replicate:  p.Replicate,
		store:      p.Store,
		limiter:    p.Limiter,
		obsMetrics: p.ObsMetrics,
	}

	svc.registerWebhookRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerWebhookRoutes() {
	webhooks := s.engine.Group("/webhooks")

	webhooks.POST("/lemonsqueezy", s.HandleWebhook(paymentdomain.ProviderLemonSqueezy))
	webhooks.POST("/paddle", s.HandleWebhook(paymentdomain.ProviderPaddle))
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/artists", s.ListArtists)
	api.GET("/packs", s.ListCreditPacks)

	authed := api.Group("", s.BearerAuth())
	{
		authed.GET("/me", s.GetMe)
		authed.GET("/me/transactions", s.ListMyTransactions)

		authed.POST("/dreams", s.GenerationRateLimit(), s.CreateDream)
		authed.GET("/dreams", s.ListMyDreams)

		authed.POST("/checkout", s.CreateCheckout)
	}
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin")

	admin.Use(s.BearerAuth())

	admin.POST("/credits", s.authorizeAction(authorization.ObjectCredits, authorization.ActionCreditsAdjust), s.AdjustCredits)
	admin.GET("/integrations", s.authorizeAction(authorization.ObjectIntegrations, authorization.ActionIntegrationsView), s.GetIntegrations)
	admin.GET("/sales", s.authorizeAction(authorization.ObjectSales, authorization.ActionSalesView), s.ListSales)
	admin.GET("/anomalies", s.authorizeAction(authorization.ObjectReconciliation, authorization.ActionReconciliationView), s.ListAnomalies)
	admin.GET("/audit-logs", s.authorizeAction(authorization.ObjectAudit, authorization.ActionAuditView), s.ListAuditLogs)
}

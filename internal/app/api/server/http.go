package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/staypay/docs"
	"github.com/fatflowers/staypay/internal/app/api/handlers"
	mw "github.com/fatflowers/staypay/internal/app/api/middleware"
	"github.com/fatflowers/staypay/internal/app/service/ledger"
	webhookevent "github.com/fatflowers/staypay/internal/app/service/webhook_event"
	wh "github.com/fatflowers/staypay/internal/app/service/webhook_handler"
	cfgpkg "github.com/fatflowers/staypay/pkg/config"
	"github.com/fatflowers/staypay/pkg/metrics"
)

func newEngine(cfg *cfgpkg.Config) *gin.Engine {
	if cfg.Env == cfgpkg.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeDeps struct {
	fx.In

	Engine     *gin.Engine
	Log        *zap.SugaredLogger
	Config     *cfgpkg.Config
	DB         *gorm.DB
	Prometheus *metrics.Prometheus
	Recorder   *metrics.Recorder
	Webhooks   *wh.Handler
	Events     *webhookevent.Service
	Ledger     *ledger.Service
}

func registerRoutes(d routeDeps) {
	r, log := d.Engine, d.Log
	if d.Config.MetricsAddr != "" {
		r.Use(d.Prometheus.HandlerFunc())
	}

	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	handlers.RegisterHealthRoutes(pub, d.DB)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Provider webhooks authenticate by signature, not by bearer token
	hooks := r.Group("/webhooks")
	hooks.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	handlers.RegisterWebhookRoutes(hooks, d.Webhooks, log)

	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	handlers.RegisterPaymentRoutes(apiV1.Group("/payments"), d.Ledger)

	admin := apiV1.Group("/admin")
	admin.Use(mw.AdminAuthMiddleware(d.Config.Admin.JWTSecret, log))
	handlers.RegisterAdminRoutes(admin, d.Events, d.Webhooks, d.Ledger, d.Recorder)
	if d.Config.Admin.JWTSecret == "" {
		log.Warnw("admin api disabled: admin.jwt_secret is empty")
	}
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	lc.Append(serverHook(log, "http", srv, 120*time.Second))
}

// runMetricsServer exposes /metrics on its own listener so scrapes stay out
// of the API access log.
func runMetricsServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, p *metrics.Prometheus) {
	if cfg.MetricsAddr == "" {
		return
	}
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: p.NewMetricsEngine(), ReadHeaderTimeout: 5 * time.Second}
	lc.Append(serverHook(log, "metrics", srv, 5*time.Second))
}

func serverHook(log *zap.SugaredLogger, name string, srv *http.Server, drain time.Duration) fx.Hook {
	return fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting server", "name", name, "addr", srv.Addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorw("server error", "name", name, "err", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping server", "name", name)
			shutdownCtx, cancel := context.WithTimeout(ctx, drain)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
	fx.Invoke(runMetricsServer),
)

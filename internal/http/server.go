package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmehdipour/formdesk/internal/config"
	"github.com/jmehdipour/formdesk/internal/http/middleware"
	"github.com/jmehdipour/formdesk/internal/logger"
	"github.com/jmehdipour/formdesk/internal/metrics"
	"github.com/jmehdipour/formdesk/internal/repository"
	"github.com/jmehdipour/formdesk/internal/service/intake"
	"github.com/jmehdipour/formdesk/internal/submitter"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct{ e *echo.Echo }

// requestValidator plugs go-playground/validator into echo's c.Validate.
type requestValidator struct{ v *validator.Validate }

func (rv requestValidator) Validate(i any) error { return rv.v.Struct(i) }

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client) *Server {
	// repos (MySQL)
	clientsRepo := repository.NewClientsRepository(mysqlDB)
	formsRepo := repository.NewFormsRepository(mysqlDB)
	subsRepo := repository.NewSubmissionsRepository(mysqlDB)
	outboxRepo := repository.NewOutboxRepository()

	// repos (ClickHouse)
	chRunsRepo := repository.NewCHRunsRepository(clickhouseDB)

	// services
	settings := cfg.Settings()
	submitSvc := submitter.New(submitter.StaticSettings(settings), submitter.SubmissionFields{}, subsRepo, subsRepo)

	intakeSvc := intake.New(mysqlDB, formsRepo, subsRepo, outboxRepo, submitSvc)
	intakeSvc.Vendor = settings.Vendor
	intakeSvc.Runs = chRunsRepo
	if cfg.Kafka.Topic != "" {
		intakeSvc.Topic = cfg.Kafka.Topic
	}
	if rds != nil {
		intakeSvc.Guard = repository.NewRunGuard(rds, cfg.Redis.GuardTTL)
	}

	// echo
	e := newEcho()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.APIKeyMiddleware(clientsRepo)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		DefaultRPS:     cfg.RateLimit.RPS,
		KeyPrefix:      "rl:client:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1", authMW)
	v1.POST("/forms/:form_id/submissions", submitHandler(intakeSvc), rlMW)
	v1.GET("/submissions/:id", getSubmissionHandler(subsRepo))
	v1.GET("/reports/runs", listRunsHandler(chRunsRepo))

	return &Server{e: e}
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(log.WARN)
	e.Validator = requestValidator{v: validator.New()}
	e.Use(echoMid.Recover(), echoMid.Logger())
	return e
}

func (s *Server) Start(addr string) error {
	logger.Log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

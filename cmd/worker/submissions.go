package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/formdesk/internal/config"
	"github.com/jmehdipour/formdesk/internal/db"
	"github.com/jmehdipour/formdesk/internal/kafka"
	"github.com/jmehdipour/formdesk/internal/logger"
	"github.com/jmehdipour/formdesk/internal/metrics"
	"github.com/jmehdipour/formdesk/internal/repository"
	"github.com/jmehdipour/formdesk/internal/service/intake"
	"github.com/jmehdipour/formdesk/internal/submitter"
	"github.com/jmehdipour/formdesk/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var submissionsCmd = &cobra.Command{
	Use:   "submissions",
	Short: "Process submissions accepted with async=true",
	RunE:  runSubmissions,
}

func runSubmissions(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	// 2) connections
	dbx, err := db.NewMySQLConnection(cfg.MySQL.DSN, cfg.MySQL.Pool())
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}
	defer dbx.Close()

	rds, err := db.NewRedisClient(db.RedisOpts{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	})
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer func() { _ = rds.Close() }()

	chDB, err := db.NewClickHouseConnection(db.ClickHouseOpts{DSN: cfg.ClickHouse.DSN, PoolOpts: cfg.ClickHouse.Pool()})
	if err != nil {
		return fmt.Errorf("clickhouse connect: %w", err)
	}
	defer func() { _ = chDB.Close() }()

	// 3) repositories and services
	formsRepo := repository.NewFormsRepository(dbx)
	subsRepo := repository.NewSubmissionsRepository(dbx)

	settings := cfg.Settings()
	submitSvc := submitter.New(submitter.StaticSettings(settings), submitter.SubmissionFields{}, subsRepo, subsRepo)

	intakeSvc := intake.New(dbx, formsRepo, subsRepo, repository.NewOutboxRepository(), submitSvc)
	intakeSvc.Vendor = settings.Vendor
	intakeSvc.Runs = repository.NewCHRunsRepository(chDB)
	intakeSvc.Guard = repository.NewRunGuard(rds, cfg.Redis.GuardTTL)

	// 4) kafka consumer
	topic := cfg.Kafka.Topic
	if topic == "" {
		topic = intake.DefaultTopic
	}
	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "formdesk-submitter"
	}

	consumer, err := kafka.NewConsumer(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
	})
	if err != nil {
		return err
	}
	defer consumer.Close()

	w := worker.NewSubmissions(consumer, intakeSvc)
	if cfg.Worker.Count > 0 {
		w.Workers = cfg.Worker.Count
	}

	// 5) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Log.Info("submissions worker started",
		zap.String("topic", topic),
		zap.String("group", groupID),
		zap.Int("workers", w.Workers),
		zap.String("vendor", settings.Vendor))

	return w.Run(ctx)
}

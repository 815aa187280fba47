package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"complaintdesk/internal/account"
	"complaintdesk/internal/auth"
	"complaintdesk/internal/config"
	"complaintdesk/internal/database"
	"complaintdesk/internal/logger"
	"complaintdesk/internal/notify"
	"complaintdesk/internal/server"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	db, err := database.Open(cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zlog.Fatal("database migration failed", zap.Error(err))
	}

	ctx := context.Background()
	if _, err := account.EnsureAdmin(ctx, db, account.UserInput{
		FullName: cfg.Admin.FullName,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	}, zlog); err != nil {
		zlog.Error("admin bootstrap failed", zap.Error(err))
	}

	var revocations auth.RevocationStore = auth.NewMemoryRevocationStore()
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			zlog.Fatal("redis connection failed", zap.Error(err))
		}
		defer rdb.Close()
		revocations = auth.NewRedisRevocationStore(rdb)
	}

	var mailer notify.Mailer = notify.NewLogMailer(zlog)
	if cfg.Mail.Enabled {
		m, err := notify.NewSMTPMailer(cfg.Mail)
		if err != nil {
			zlog.Fatal("mail client setup failed", zap.Error(err))
		}
		mailer = m
	}
	var publisher notify.Publisher = notify.NopPublisher{}
	if cfg.Kafka.Enabled {
		publisher = notify.NewKafkaPublisher(cfg.Kafka)
	}
	dispatcher := notify.NewDispatcher(mailer, publisher, zlog, cfg.Mail.QueueSize)
	dispatcher.Start()

	app := server.New(server.Deps{
		Config:      cfg,
		DB:          db,
		Log:         zlog,
		Tokens:      auth.NewTokens(cfg.JWT),
		Revocations: revocations,
		Notifier:    dispatcher,
	})

	go func() {
		zlog.Info("server listening", zap.String("port", cfg.App.Port), zap.String("env", cfg.App.Env))
		if err := app.Listen(":" + cfg.App.Port); err != nil {
			zlog.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zlog.Error("http shutdown", zap.Error(err))
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		zlog.Error("notification shutdown", zap.Error(err))
	}
	if err := database.Close(db); err != nil {
		zlog.Error("database close", zap.Error(err))
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eva-notify/internal/chat"
	"eva-notify/internal/config"
	"eva-notify/internal/database"
	"eva-notify/internal/email"
	"eva-notify/internal/endpoints"
	"eva-notify/internal/logger"
	"eva-notify/internal/notify"
	"eva-notify/internal/ops"
	"eva-notify/internal/push"
	"eva-notify/internal/supervisor"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Erro config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Config inválida: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
	if err != nil {
		log.Fatalf("❌ Erro logger: %v", err)
	}
	defer zapLogger.Sync()

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("❌ Falha ao iniciar", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("🚀 Iniciando motor de notificações EVA")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	logger.Info("✅ Banco de dados conectado")

	provider, err := push.NewFirebaseProvider(ctx, cfg.FirebaseCredentialsPath, logger)
	if err != nil {
		return fmt.Errorf("firebase: %w", err)
	}
	gateway := push.NewGateway(provider, cfg.PushBatchSize, logger)

	var mailer endpoints.Mailer
	if cfg.EnableEmailFallback {
		emailService, err := email.NewEmailService(cfg)
		if err != nil {
			logger.Warn("⚠️ Email service not configured", zap.Error(err))
		} else {
			mailer = emailService
			logger.Info("✅ Email service initialized")
		}
	}

	tracker := endpoints.NewTracker(gateway, db, mailer, cfg.PushPrevalidate, logger)
	dispatcher := notify.NewDispatcher(gateway, tracker, logger)
	fanout := chat.NewFanOut(db, dispatcher, logger)

	var feed chat.Feed
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn("⚠️ REDIS_URL inválida, listener do chat desativado", zap.Error(err))
	} else {
		rdb := redis.NewClient(redisOpts)
		defer rdb.Close()
		feed = chat.NewRedisFeed(rdb, cfg.ChatChannelPrefix, cfg.ChatQueueSize, logger)
	}

	sup := supervisor.New(cfg, db, dispatcher, fanout, feed, logger)
	if err := sup.Start(ctx); err != nil {
		return err
	}

	var opsServer *ops.Server
	if cfg.MetricsPort != "" {
		opsServer = ops.NewServer(cfg.MetricsPort, db, sup, logger)
		go func() {
			if err := opsServer.ListenAndServe(); err != nil {
				logger.Error("❌ Servidor de operação falhou", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("🛑 Sinal recebido, encerrando...")

	if opsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("⚠️ Erro ao parar servidor de operação", zap.Error(err))
		}
	}

	sup.Stop()
	return nil
}

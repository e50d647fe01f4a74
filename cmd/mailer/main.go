package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"club-api/internal/core/config"
	"club-api/internal/core/logger"
	"club-api/internal/core/mail"
	"club-api/internal/core/queue"
)

// mailer 从 AMQP 队列取邮件，经 SMTP 发出
func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, cleanup := logger.FromConfig(cfg.Log, zap.String("env", cfg.App.Env))
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()
	log = log.Named("mailer")

	if !cfg.AMQP.Enabled || cfg.AMQP.URL == "" {
		log.Fatal("amqp is disabled, nothing to consume")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{URL: cfg.AMQP.URL, Queue: cfg.AMQP.Queue, Prefetch: 4, Log: log}
	log.Info("mailer consuming", zap.String("queue", cfg.AMQP.Queue), zap.String("smtp", cfg.Mail.Host))
	if err := c.Run(ctx, mail.Decode(mail.NewSMTPSender(cfg.Mail))); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("mailer stopped", zap.Error(err))
		return
	}
	log.Info("mailer stopped gracefully")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"softphone-governor/pkg/config"
	"softphone-governor/pkg/metrics"
	redisClient "softphone-governor/pkg/redis"
	"softphone-governor/pkg/service"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	logger.SetFormatter(&logrus.JSONFormatter{})

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	logger.WithFields(logrus.Fields{
		"pod_id":        cfg.PodID,
		"softphone_url": cfg.SoftphoneURL,
		"dedup_backend": cfg.DedupBackend,
	}).Info("Starting softphone governor")

	metrics := metrics.NewMetrics(prometheus.DefaultRegisterer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		redis, err := redisClient.NewClient(ctx, redisClient.DefaultConnectionConfig(cfg.RedisURL), logger, metrics)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redis.Close()
		rdb = redis.Redis()
	}

	svc, err := service.New(cfg, rdb, logger, metrics)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create service")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.WithField("signal", sig.String()).Info("Received shutdown signal")
		cancel()
	}()

	if err := svc.Run(ctx); err != nil {
		logger.WithError(err).Error("Service exited with error")
		os.Exit(1)
	}

	logger.Info("Softphone governor shutdown complete")
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Luca-vn/coinhub/config"
	"github.com/Luca-vn/coinhub/internal/collect"
	"github.com/Luca-vn/coinhub/internal/dashboard"
	"github.com/Luca-vn/coinhub/internal/market"
	"github.com/Luca-vn/coinhub/internal/mirror"
	"github.com/Luca-vn/coinhub/internal/series"
	"github.com/Luca-vn/coinhub/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Coinhub.Name,
		"version": cfg.Coinhub.Version,
		"assets":  len(cfg.Assets),
	}).Info("starting coinhub")

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := series.NewStore(cfg.Storage.Root)
	source := market.NewBinanceSource(cfg.Source.Binance)
	collector := collect.NewCollector(source, cfg.Collector.RequestTimeout())
	scheduler := collect.NewScheduler(
		cfg.Assets,
		cfg.Collector.CoarseInterval(),
		cfg.Collector.FineInterval(),
		collector,
		store,
	)

	s3Mirror, err := mirror.New(cfg.Storage.S3)
	if err != nil {
		log.WithError(err).Error("failed to create S3 mirror")
		os.Exit(1)
	}
	if s3Mirror != nil {
		scheduler.OnCoarseSweepDone(func(ctx context.Context) {
			s3Mirror.UploadPartitions(ctx, cfg.Storage.Root)
		})
	}

	dash, err := dashboard.NewServer(
		cfg.Dashboard,
		cfg.Assets,
		series.NewSnapshotReader(store),
		series.NewWindowReader(store),
		log,
	)
	if err != nil {
		log.WithError(err).Error("failed to create dashboard server")
		os.Exit(1)
	}

	var wg sync.WaitGroup

	if err := scheduler.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start scheduler")
		os.Exit(1)
	}

	if dash != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := dash.Run(ctx, cfg.Coinhub.Name); err != nil {
				log.WithError(err).Warn("dashboard server exited with error")
			}
		}()
	}

	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")
	cancel()

	log.Info("stopping scheduler")
	scheduler.Stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("graceful shutdown completed")
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	log.Info("coinhub stopped")
}

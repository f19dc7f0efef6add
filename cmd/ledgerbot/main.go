package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"txledger/internal/bootstrap"
	"txledger/internal/config"
	"txledger/internal/infrastructure/kafka"
	"txledger/internal/infrastructure/logging"
	"txledger/internal/infrastructure/telemetry"
	"txledger/internal/interfaces/httpapi"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logFile, err := logging.Init(logging.ConfigFrom(cfg))
	if err != nil {
		log.Fatalf("logging error: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	shutdownTracing, err := telemetry.InitTracer(context.Background(), telemetry.Config{
		ServiceName:    "txledger-bot",
		ServiceVersion: version,
		Endpoint:       cfg.OtelEndpoint,
	})
	if err != nil {
		slog.Warn("tracing init error", "err", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			slog.Warn("tracing shutdown error", "err", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	metrics := httpapi.NewMetrics()
	svc, err := bootstrap.Build(ctx, cfg, metrics)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			slog.Warn("shutdown error", "err", err)
		}
	}()
	metrics.SetLedgerConnected(svc.Store.IsConnected())
	if !svc.Store.IsConnected() {
		slog.Warn("ledger logging disabled", "err", svc.Store.LastError())
	}

	server, err := httpapi.NewServer(cfg, svc.Pipeline, svc.Store, svc.Renderer, metrics, httpapi.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	})
	if err != nil {
		slog.Error("http server error", "err", err)
		os.Exit(1)
	}

	var wg sync.WaitGroup
	if len(cfg.KafkaBrokers) > 0 {
		consumer, closeIntake, err := newIntake(cfg, svc, metrics)
		if err != nil {
			slog.Error("kafka intake error", "err", err)
			os.Exit(1)
		}
		defer closeIntake()

		wg.Add(1)
		go func() {
			defer wg.Done()
			slog.Info("trigger intake started", "topic", cfg.KafkaTriggerTopic, "group", cfg.KafkaGroupID)
			if err := consumer.Run(ctx); err != nil {
				slog.Error("trigger intake stopped", "err", err)
				cancel()
			}
		}()
	}

	slog.Info("http server listening", "addr", cfg.HTTPAddr, "version", version)
	if err := server.ListenAndServe(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("http server error", "err", err)
		cancel()
	}
	wg.Wait()
}

func newIntake(cfg config.Config, svc *bootstrap.Services, metrics *httpapi.Metrics) (*kafka.TriggerConsumer, func(), error) {
	reader, err := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTriggerTopic,
		GroupID: cfg.KafkaGroupID,
	})
	if err != nil {
		return nil, nil, err
	}
	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaOutcomeTopic,
	})
	if err != nil {
		_ = reader.Close()
		return nil, nil, err
	}
	consumer, err := kafka.NewTriggerConsumer(reader, svc.Pipeline, producer, svc.Renderer, metrics)
	if err != nil {
		_ = reader.Close()
		_ = producer.Close()
		return nil, nil, err
	}
	closeAll := func() {
		_ = reader.Close()
		_ = producer.Close()
	}
	return consumer, closeAll, nil
}

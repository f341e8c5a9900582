// Command eventlog tails the directory event topic and writes every event
// to the log.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/directory/internal/directory/config"
	"github.com/gartstein/directory/internal/directory/events"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if len(cfg.KafkaBrokers) == 0 {
		logger.Fatal("KAFKA_BROKERS is empty, nothing to read")
	}

	consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, cfg.Topic, logger)
	defer consumer.Close()
	consumer.RegisterHandler(func(_ context.Context, ev events.Event) error {
		logger.Info("Directory event",
			zap.String("event_id", ev.ID.String()),
			zap.String("type", string(ev.Type)),
			zap.String("entity", ev.Type.Entity()),
			zap.Uint("entity_id", ev.EntityID),
			zap.Time("occurred_at", ev.OccurredAt),
			zap.Any("payload", ev.Payload),
		)
		return nil
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Reading events", zap.String("topic", cfg.Topic), zap.Strings("brokers", cfg.KafkaBrokers))
	<-consumer.Start(ctx)
	logger.Info("Event log stopped")
}

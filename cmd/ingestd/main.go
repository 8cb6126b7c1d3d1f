package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Handroo/elasticsearch-oai/pkg/api"
	"github.com/Handroo/elasticsearch-oai/pkg/bulk"
	"github.com/Handroo/elasticsearch-oai/pkg/database/elasticsearch"
	"github.com/Handroo/elasticsearch-oai/pkg/database/mongodb"
	"github.com/Handroo/elasticsearch-oai/pkg/database/redis"
	"github.com/Handroo/elasticsearch-oai/pkg/logger"
	"github.com/Handroo/elasticsearch-oai/pkg/mq/kafka"
	"github.com/Handroo/elasticsearch-oai/pkg/settings"
	"github.com/Handroo/elasticsearch-oai/pkg/utils"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := settings.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logger)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("ingestd failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *settings.Config, log *zap.Logger) error {
	sink, err := buildSink(ctx, cfg)
	if err != nil {
		return err
	}

	limiter := bulk.NewLimiter(cfg.Bulk.MaxActiveRequests, utils.ToDurationMs(cfg.Bulk.WaitBeforeContinue))
	writer := bulk.NewWriter(sink, limiter, bulk.Config{
		BulkSize:       cfg.Bulk.Size,
		MaxTotalStalls: cfg.Bulk.MaxTotalStalls,
	}, log)

	var checkpoints *redis.CheckpointStore
	if cfg.Redis.Host != "" {
		engine, err := redis.NewConnection(&cfg.Redis)
		if err != nil {
			return errors.Wrap(err, "failed to connect to redis")
		}
		defer engine.Close()
		checkpoints = redis.NewCheckpointStore(engine)
	}

	g, ctx := errgroup.WithContext(ctx)

	if len(cfg.Kafka.Brokers) > 0 {
		source := kafka.NewSource(cfg.Kafka, writer, checkpoints, log)
		g.Go(func() error {
			return source.Run(ctx)
		})
	}

	server := api.NewServer(cfg.Server, writer, log)
	g.Go(func() error {
		return server.Run(ctx)
	})

	runErr := g.Wait()
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	// Drain whatever the sources left behind before reporting.
	flushCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := writer.Flush(flushCtx); err != nil {
		log.Error("final flush failed", zap.Error(err))
	}

	return runErr
}

func buildSink(ctx context.Context, cfg *settings.Config) (bulk.Sink, error) {
	switch cfg.Bulk.Sink {
	case "mongodb":
		client, err := mongodb.NewConnection(ctx, &cfg.MongoDB)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to mongodb")
		}
		coll := client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection)
		return mongodb.NewBulkSink(coll), nil
	case "", "elasticsearch":
		client, err := elasticsearch.NewConnection(cfg.Elasticsearch)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to elasticsearch")
		}
		return elasticsearch.NewBulkSink(client, cfg.Elasticsearch.Index), nil
	default:
		return nil, errors.Errorf("unknown sink %q", cfg.Bulk.Sink)
	}
}

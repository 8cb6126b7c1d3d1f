package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Handroo/elasticsearch-oai/pkg/bulk"
	"github.com/Handroo/elasticsearch-oai/pkg/database/redis"
	"github.com/Handroo/elasticsearch-oai/pkg/settings"
	"github.com/Handroo/elasticsearch-oai/pkg/utils"
)

// Source consumes harvested records from Kafka and feeds them to a bulk
// writer. Partial batches are flushed on every rebalance and on shutdown,
// and the drain either succeeds or fails the session, so delivery is
// at-least-once end to end.
type Source struct {
	cfg         settings.Kafka
	writer      *bulk.Writer
	checkpoints *redis.CheckpointStore // may be nil
	log         *zap.Logger
}

// NewSource creates a source feeding writer from the configured topics.
// checkpoints may be nil to disable harvest-cursor tracking.
func NewSource(cfg settings.Kafka, writer *bulk.Writer, checkpoints *redis.CheckpointStore, log *zap.Logger) *Source {
	if log == nil {
		log = zap.NewNop()
	}
	return &Source{
		cfg:         cfg,
		writer:      writer,
		checkpoints: checkpoints,
		log:         log,
	}
}

// Run consumes until ctx ends or the consumer group fails.
func (s *Source) Run(ctx context.Context) error {
	group, err := sarama.NewConsumerGroup(s.cfg.Brokers, s.cfg.GroupID, s.saramaConfig())
	if err != nil {
		return errors.Wrap(err, "failed to create consumer group")
	}
	defer group.Close()

	h := &handler{
		writer:      s.writer,
		checkpoints: s.checkpoints,
		stream:      s.cfg.GroupID,
		log:         s.log,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			if err := group.Consume(ctx, s.cfg.Topics, h); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) || errors.Is(err, context.Canceled) {
					return nil
				}
				return errors.Wrap(err, "consume failed")
			}
			if ctx.Err() != nil {
				return nil
			}
			// Rebalance: loop into a new session.
		}
	})

	g.Go(func() error {
		for {
			select {
			case err, ok := <-group.Errors():
				if !ok {
					return nil
				}
				s.log.Error("consumer group error", zap.Error(err))
			case <-ctx.Done():
				return nil
			}
		}
	})

	return g.Wait()
}

func (s *Source) saramaConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Version = sarama.V2_1_0_0
	config.Consumer.Return.Errors = true

	if s.cfg.InitialOffset == "oldest" {
		config.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		config.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	if s.cfg.Timeout > 0 {
		config.Net.DialTimeout = utils.ToDuration(s.cfg.Timeout)
	}
	if s.cfg.MaxRetries > 0 {
		config.Metadata.Retry.Max = s.cfg.MaxRetries
	}
	if s.cfg.RetryBackoff > 0 {
		config.Metadata.Retry.Backoff = utils.ToDurationMs(s.cfg.RetryBackoff)
	}
	if s.cfg.MaxProcessingTime > 0 {
		config.Consumer.MaxProcessingTime = utils.ToDurationMs(s.cfg.MaxProcessingTime)
	}
	return config
}

// handler is the per-session consumer. Malformed records are logged,
// marked and skipped; they are not worth stalling a harvest for.
type handler struct {
	writer      *bulk.Writer
	checkpoints *redis.CheckpointStore
	stream      string
	log         *zap.Logger

	mu   sync.Mutex
	last string
}

var _ sarama.ConsumerGroupHandler = (*handler)(nil)

func (h *handler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup drains the writer before offsets are committed, so every marked
// message has reached the sink or the session fails.
func (h *handler) Cleanup(sess sarama.ConsumerGroupSession) error {
	if err := h.writer.Flush(sess.Context()); err != nil {
		return errors.Wrap(err, "failed to flush bulk writer")
	}
	h.saveCheckpoint(sess.Context())
	return nil
}

func (h *handler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		m, err := decodeMutation(msg.Value)
		if err != nil {
			h.log.Warn("skipping malformed record",
				zap.String("topic", msg.Topic),
				zap.Int32("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
			sess.MarkMessage(msg, "")
			continue
		}

		if err := h.writer.Write(sess.Context(), m); err != nil {
			return errors.Wrap(err, "failed to write mutation")
		}

		h.mu.Lock()
		h.last = m.ID
		h.mu.Unlock()
		sess.MarkMessage(msg, "")
	}
	return nil
}

func (h *handler) saveCheckpoint(ctx context.Context) {
	if h.checkpoints == nil {
		return
	}

	h.mu.Lock()
	last := h.last
	h.mu.Unlock()
	if last == "" {
		return
	}

	cp := redis.Checkpoint{
		LastIdentifier: last,
		Docs:           h.writer.Stats().TotalDocs,
		UpdatedAt:      time.Now().UTC(),
	}
	if err := h.checkpoints.Save(ctx, h.stream, cp); err != nil {
		h.log.Error("failed to save harvest checkpoint",
			zap.String("stream", h.stream),
			zap.Error(err))
	}
}

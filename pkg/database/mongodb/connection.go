package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Handroo/elasticsearch-oai/pkg/settings"
	"github.com/Handroo/elasticsearch-oai/pkg/utils"
)

const (
	defaultTimeout         = 5  // Seconds
	defaultMaxPoolSize     = 10 //
	defaultMaxConnIdleTime = 60 // Seconds
)

// NewConnection creates a MongoDB client and verifies the server answers
// before returning it.
func NewConnection(ctx context.Context, cfg *settings.MongoDB) (*mongo.Client, error) {
	setDefaultConfig(cfg)

	uri := fmt.Sprintf("mongodb://%s:%d", cfg.Host, cfg.Port)
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(utils.ToDuration(int(cfg.MaxConnIdleTime)))

	if cfg.Username != "" {
		opts.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	connectCtx, cancel := context.WithTimeout(ctx, utils.ToDuration(cfg.Timeout))
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPingFailed, err)
	}

	return client, nil
}

func setDefaultConfig(cfg *settings.MongoDB) {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = defaultMaxPoolSize
	}
	if cfg.MaxConnIdleTime == 0 {
		cfg.MaxConnIdleTime = defaultMaxConnIdleTime
	}
}

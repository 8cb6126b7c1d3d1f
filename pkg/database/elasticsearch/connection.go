package elasticsearch

import (
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/Handroo/elasticsearch-oai/pkg/settings"
)

// NewConnection creates an Elasticsearch client and verifies the cluster
// answers before returning it.
func NewConnection(cfg settings.Elasticsearch) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPingFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrPingFailed, res.Status())
	}

	return client, nil
}

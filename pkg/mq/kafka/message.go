package kafka

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/Handroo/elasticsearch-oai/pkg/bulk"
)

// Record is the wire format of one harvested resource on the topic.
// Deleted records carry no document body.
type Record struct {
	Identifier string          `json:"identifier"`
	Deleted    bool            `json:"deleted"`
	Doc        json.RawMessage `json:"doc,omitempty"`
}

// decodeMutation translates a message value into a bulk mutation.
func decodeMutation(value []byte) (bulk.Mutation, error) {
	var rec Record
	if err := json.Unmarshal(value, &rec); err != nil {
		return bulk.Mutation{}, errors.Wrap(err, "failed to decode record")
	}
	if rec.Identifier == "" {
		return bulk.Mutation{}, ErrMissingIdentifier
	}

	if rec.Deleted {
		return bulk.Mutation{ID: rec.Identifier, Kind: bulk.KindDelete}, nil
	}
	if len(rec.Doc) == 0 {
		return bulk.Mutation{}, ErrMissingDoc
	}
	return bulk.Mutation{ID: rec.Identifier, Kind: bulk.KindUpsert, Payload: rec.Doc}, nil
}

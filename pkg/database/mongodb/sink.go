package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Handroo/elasticsearch-oai/pkg/bulk"
)

// BulkSink executes closed batches against a MongoDB collection using the
// driver's BulkWrite. Upserts become ReplaceOne models with upsert set,
// deletes become DeleteOne models, keyed by _id.
type BulkSink struct {
	coll *mongo.Collection
}

var _ bulk.Sink = (*BulkSink)(nil)

// NewBulkSink creates a sink writing to the given collection.
func NewBulkSink(coll *mongo.Collection) *BulkSink {
	return &BulkSink{coll: coll}
}

// Submit implements bulk.Sink.
func (s *BulkSink) Submit(ctx context.Context, batch []bulk.Mutation) (<-chan bulk.Completion, error) {
	models, err := buildWriteModels(batch)
	if err != nil {
		return nil, err
	}

	done := make(chan bulk.Completion, 1)
	go func() {
		done <- s.execute(ctx, models, len(batch))
	}()
	return done, nil
}

// buildWriteModels translates mutations into driver write models. Order is
// preserved; BulkWrite runs ordered so earlier models settle first.
func buildWriteModels(batch []bulk.Mutation) ([]mongo.WriteModel, error) {
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}

	models := make([]mongo.WriteModel, 0, len(batch))
	for _, m := range batch {
		filter := bson.D{{Key: "_id", Value: m.ID}}

		switch m.Kind {
		case bulk.KindDelete:
			models = append(models, mongo.NewDeleteOneModel().SetFilter(filter))
		default:
			var doc bson.D
			if err := bson.UnmarshalExtJSON(m.Payload, true, &doc); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, m.ID, err)
			}
			models = append(models, mongo.NewReplaceOneModel().
				SetFilter(filter).
				SetReplacement(doc).
				SetUpsert(true))
		}
	}
	return models, nil
}

func (s *BulkSink) execute(ctx context.Context, models []mongo.WriteModel, docs int) bulk.Completion {
	start := time.Now()

	_, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	took := time.Since(start)

	if err != nil {
		var bwe mongo.BulkWriteException
		if errors.As(err, &bwe) && len(bwe.WriteErrors) > 0 {
			failures := make([]bulk.ItemFailure, 0, len(bwe.WriteErrors))
			for _, we := range bwe.WriteErrors {
				id := ""
				if we.Index >= 0 && we.Index < docs {
					id = modelID(models[we.Index])
				}
				failures = append(failures, bulk.ItemFailure{
					ID:     id,
					Status: we.Code,
					Reason: we.Message,
				})
			}
			return bulk.Completion{
				Took:      took,
				Succeeded: docs - len(failures),
				Failures:  failures,
			}
		}
		return bulk.Completion{Err: fmt.Errorf("%w: %v", ErrBulkWriteFailed, err)}
	}

	return bulk.Completion{
		Took:      took,
		Succeeded: docs,
	}
}

// modelID extracts the _id a write model is keyed by.
func modelID(model mongo.WriteModel) string {
	var filter interface{}
	switch m := model.(type) {
	case *mongo.ReplaceOneModel:
		filter = m.Filter
	case *mongo.DeleteOneModel:
		filter = m.Filter
	default:
		return ""
	}

	d, ok := filter.(bson.D)
	if !ok {
		return ""
	}
	for _, e := range d {
		if e.Key == "_id" {
			if id, ok := e.Value.(string); ok {
				return id
			}
		}
	}
	return ""
}

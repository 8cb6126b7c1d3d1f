package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/Handroo/elasticsearch-oai/pkg/bulk"
	"github.com/Handroo/elasticsearch-oai/pkg/utils"
)

// BulkSink executes closed batches against the Elasticsearch Bulk API.
// It implements bulk.Sink: Submit encodes the NDJSON body synchronously
// (errors there are dispatch failures) and runs the request on its own
// goroutine, delivering exactly one completion.
type BulkSink struct {
	client ElasticClient
	index  string
}

var _ bulk.Sink = (*BulkSink)(nil)

// NewBulkSink creates a sink writing to the given index.
func NewBulkSink(client ElasticClient, index string) *BulkSink {
	return &BulkSink{
		client: client,
		index:  index,
	}
}

// Submit implements bulk.Sink.
func (s *BulkSink) Submit(ctx context.Context, batch []bulk.Mutation) (<-chan bulk.Completion, error) {
	body, err := encodeBulkBody(s.index, batch)
	if err != nil {
		return nil, err
	}

	done := make(chan bulk.Completion, 1)
	go func() {
		done <- s.execute(ctx, body, len(batch))
	}()
	return done, nil
}

// encodeBulkBody renders one action-and-metadata line per mutation, plus
// the source line for upserts.
func encodeBulkBody(index string, batch []bulk.Mutation) (*bytes.Buffer, error) {
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}

	var buf bytes.Buffer
	for _, m := range batch {
		switch m.Kind {
		case bulk.KindDelete:
			meta := fmt.Sprintf(`{ "delete" : { "_index" : "%s", "_id" : "%s" } }%s`, index, m.ID, "\n")
			buf.WriteString(meta)
		default:
			if len(m.Payload) == 0 {
				return nil, fmt.Errorf("%w: %s", ErrMissingPayload, m.ID)
			}
			meta := fmt.Sprintf(`{ "index" : { "_index" : "%s", "_id" : "%s" } }%s`, index, m.ID, "\n")
			buf.WriteString(meta)
			buf.Write(m.Payload)
			buf.WriteByte('\n')
		}
	}
	return &buf, nil
}

func (s *BulkSink) execute(ctx context.Context, body *bytes.Buffer, docs int) bulk.Completion {
	req := esapi.BulkRequest{
		Body: bytes.NewReader(body.Bytes()),
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return bulk.Completion{Err: fmt.Errorf("%w: %v", ErrBulkRequestFailed, err)}
	}
	defer res.Body.Close()

	if res.IsError() {
		return bulk.Completion{Err: fmt.Errorf("%w: %s", ErrBulkRequestFailed, res.Status())}
	}

	var response bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return bulk.Completion{Err: fmt.Errorf("%w: %v", ErrDecodeFailed, err)}
	}

	failures := response.failures()
	return bulk.Completion{
		Took:      utils.ToDurationMs(response.Took),
		Succeeded: docs - len(failures),
		Failures:  failures,
	}
}

type bulkResponse struct {
	Took   int                           `json:"took"`
	Errors bool                          `json:"errors"`
	Items  []map[string]bulkResponseItem `json:"items"`
}

type bulkResponseItem struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

// failures collects the items Elasticsearch rejected. A delete of a missing
// document reports status 404 without an error object and is not a failure,
// matching the bulk API's own failure notion.
func (r *bulkResponse) failures() []bulk.ItemFailure {
	if !r.Errors {
		return nil
	}

	var failed []bulk.ItemFailure
	for _, item := range r.Items {
		for _, result := range item {
			if result.Error == nil {
				continue
			}
			failed = append(failed, bulk.ItemFailure{
				ID:     result.ID,
				Status: result.Status,
				Reason: fmt.Sprintf("%s: %s", result.Error.Type, result.Error.Reason),
			})
		}
	}
	return failed
}

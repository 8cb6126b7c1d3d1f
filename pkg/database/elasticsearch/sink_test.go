package elasticsearch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Handroo/elasticsearch-oai/pkg/bulk"
)

// fakeTransport answers every Perform with a canned response and records
// the request bodies it saw.
type fakeTransport struct {
	status int
	body   string
	err    error

	requests []string
}

func (f *fakeTransport) Perform(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		data, _ := io.ReadAll(req.Body)
		req.Body.Close()
		f.requests = append(f.requests, string(data))
	}
	if f.err != nil {
		return nil, f.err
	}
	return &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(strings.NewReader(f.body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}, nil
}

func awaitCompletion(t *testing.T, done <-chan bulk.Completion) bulk.Completion {
	t.Helper()
	select {
	case c := <-done:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no completion delivered")
		return bulk.Completion{}
	}
}

const successBody = `{
	"took": 30,
	"errors": false,
	"items": [
		{"index": {"_id": "oai:a", "status": 201}},
		{"delete": {"_id": "oai:b", "status": 200}}
	]
}`

func TestBulkSink_Success(t *testing.T) {
	transport := &fakeTransport{status: 200, body: successBody}
	sink := NewBulkSink(transport, "oai")

	batch := []bulk.Mutation{
		{ID: "oai:a", Kind: bulk.KindUpsert, Payload: []byte(`{"title":"a"}`)},
		{ID: "oai:b", Kind: bulk.KindDelete},
	}

	done, err := sink.Submit(context.Background(), batch)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	c := awaitCompletion(t, done)
	if c.Err != nil {
		t.Fatalf("unexpected completion error: %v", c.Err)
	}
	if c.Succeeded != 2 {
		t.Errorf("expected 2 succeeded, got %d", c.Succeeded)
	}
	if len(c.Failures) != 0 {
		t.Errorf("expected no failures, got %v", c.Failures)
	}
	if c.Took != 30*time.Millisecond {
		t.Errorf("expected took 30ms, got %v", c.Took)
	}
}

func TestBulkSink_BodyEncoding(t *testing.T) {
	transport := &fakeTransport{status: 200, body: successBody}
	sink := NewBulkSink(transport, "oai")

	batch := []bulk.Mutation{
		{ID: "oai:a", Kind: bulk.KindUpsert, Payload: []byte(`{"title":"a"}`)},
		{ID: "oai:b", Kind: bulk.KindDelete},
	}

	done, err := sink.Submit(context.Background(), batch)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	awaitCompletion(t, done)

	if len(transport.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(transport.requests))
	}

	lines := strings.Split(strings.TrimRight(transport.requests[0], "\n"), "\n")
	want := []string{
		`{ "index" : { "_index" : "oai", "_id" : "oai:a" } }`,
		`{"title":"a"}`,
		`{ "delete" : { "_index" : "oai", "_id" : "oai:b" } }`,
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d body lines, got %d: %q", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestBulkSink_ItemFailures(t *testing.T) {
	body := `{
		"took": 12,
		"errors": true,
		"items": [
			{"index": {"_id": "oai:a", "status": 201}},
			{"index": {"_id": "oai:b", "status": 400, "error": {"type": "mapper_parsing_exception", "reason": "failed to parse"}}},
			{"delete": {"_id": "oai:c", "status": 404, "result": "not_found"}}
		]
	}`
	transport := &fakeTransport{status: 200, body: body}
	sink := NewBulkSink(transport, "oai")

	batch := []bulk.Mutation{
		{ID: "oai:a", Kind: bulk.KindUpsert, Payload: []byte(`{}`)},
		{ID: "oai:b", Kind: bulk.KindUpsert, Payload: []byte(`{"bad":`)},
		{ID: "oai:c", Kind: bulk.KindDelete},
	}

	done, err := sink.Submit(context.Background(), batch)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	c := awaitCompletion(t, done)
	if c.Err != nil {
		t.Fatalf("item failures must not be a completion error: %v", c.Err)
	}
	// The 404 delete carries no error object and is not a failure.
	if len(c.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %v", c.Failures)
	}
	f := c.Failures[0]
	if f.ID != "oai:b" || f.Status != 400 {
		t.Errorf("unexpected failure %+v", f)
	}
	if !strings.Contains(f.Reason, "mapper_parsing_exception") {
		t.Errorf("expected reason to carry the error type, got %q", f.Reason)
	}
	if c.Succeeded != 2 {
		t.Errorf("expected 2 succeeded, got %d", c.Succeeded)
	}
}

func TestBulkSink_HTTPError(t *testing.T) {
	transport := &fakeTransport{status: 503, body: `{"error":"unavailable"}`}
	sink := NewBulkSink(transport, "oai")

	done, err := sink.Submit(context.Background(), []bulk.Mutation{
		{ID: "oai:a", Kind: bulk.KindUpsert, Payload: []byte(`{}`)},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	c := awaitCompletion(t, done)
	if !errors.Is(c.Err, ErrBulkRequestFailed) {
		t.Errorf("expected ErrBulkRequestFailed, got %v", c.Err)
	}
}

func TestBulkSink_TransportError(t *testing.T) {
	transport := &fakeTransport{err: errors.New("connection reset")}
	sink := NewBulkSink(transport, "oai")

	done, err := sink.Submit(context.Background(), []bulk.Mutation{
		{ID: "oai:a", Kind: bulk.KindUpsert, Payload: []byte(`{}`)},
	})
	if err != nil {
		t.Fatalf("transport errors surface on the completion, not dispatch: %v", err)
	}

	c := awaitCompletion(t, done)
	if !errors.Is(c.Err, ErrBulkRequestFailed) {
		t.Errorf("expected ErrBulkRequestFailed, got %v", c.Err)
	}
}

func TestBulkSink_DispatchErrors(t *testing.T) {
	sink := NewBulkSink(&fakeTransport{status: 200, body: successBody}, "oai")

	tests := []struct {
		name    string
		batch   []bulk.Mutation
		wantErr error
	}{
		{
			name:    "empty_batch",
			batch:   nil,
			wantErr: ErrEmptyBatch,
		},
		{
			name:    "upsert_without_payload",
			batch:   []bulk.Mutation{{ID: "oai:a", Kind: bulk.KindUpsert}},
			wantErr: ErrMissingPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done, err := sink.Submit(context.Background(), tt.batch)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if done != nil {
				t.Error("no completion channel expected on dispatch failure")
			}
		})
	}
}

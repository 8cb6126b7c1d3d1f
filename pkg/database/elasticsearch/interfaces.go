package elasticsearch

import "net/http"

// ElasticClient is the transport contract the bulk sink needs; it is
// satisfied by *elasticsearch.Client and by fakes in tests.
type ElasticClient interface {
	// Perform is required for the esapi.Transport interface
	Perform(*http.Request) (*http.Response, error)
}

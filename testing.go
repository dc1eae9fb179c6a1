package parserator

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// roundTripFunc adapts a plain function to http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// NewForTesting builds a client whose network boundary is served by handler,
// so tests and adapter development never need a real API key or server.
func NewForTesting(handler func(*http.Request) (*http.Response, error), opts ...ClientOption) *Client {
	base := []ClientOption{
		WithHTTPClient(&http.Client{Transport: roundTripFunc(handler)}),
		WithRetryConfig(RetryConfig{MaxRetries: 0, BaseDelay: 1, MaxDelay: 1, BackoffFactor: 1}),
	}
	client, err := New("pk_test_key", append(base, opts...)...)
	if err != nil {
		// Construction from static test defaults cannot fail.
		panic(err)
	}
	return client
}

// JSONResponse assembles an *http.Response carrying a JSON body, for use in
// NewForTesting handlers.
func JSONResponse(status int, body any, header http.Header) *http.Response {
	encoded, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(encoded)),
	}
}

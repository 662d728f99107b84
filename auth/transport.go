package auth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	sdkHttp "github.com/idkit/idkit/sdk/http"
)

// Request is one HTTP request to the provider, already serialized.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// Response is the provider's answer. Body is fully read; Headers are the
// response headers as received.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Transport executes one request against the provider. The client treats any
// returned error as a network-level failure; HTTP-level failures are reported
// through Response.StatusCode.
type Transport interface {
	RoundTrip(ctx context.Context, r *Request) (*Response, error)
}

// httpTransport is the default Transport, backed by a pooled http.Client.
type httpTransport struct {
	client *http.Client
}

// NewTransport creates the default Transport. The optional caPEM restricts
// server certificate verification to the given CA; an empty string uses the
// system CA chain.
func NewTransport(caPEM string) (Transport, error) {
	const op = "auth.NewTransport"
	client, err := sdkHttp.NewClient(caPEM)
	if err != nil {
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return &httpTransport{client: client}, nil
}

func (t *httpTransport) RoundTrip(ctx context.Context, r *Request) (*Response, error) {
	const op = "httpTransport.RoundTrip"
	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	for k, vs := range r.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrTransportFailed, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read response body: %w", op, err)
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Headers:    resp.Header,
	}, nil
}

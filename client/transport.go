// Package client is the delivery-side library downstream sites use to read
// published (and, in preview mode, draft) content from the CMS. It layers a
// typed content client over a TTL response cache and a retrying requester.
package client

import (
	"context"
	"time"

	"resty.dev/v3"
)

// Request is a single HTTP call to the delivery API.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response carries the upstream status and raw body. Non-2xx statuses are
// classified by the Requester, not here.
type Response struct {
	Status int
	Body   []byte
}

// Transport performs exactly one HTTP request. It has no retry or cache
// logic; an error return means the call itself failed (network, timeout).
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// restyTransport is the default Transport, built on resty.
type restyTransport struct {
	client *resty.Client
}

func newRestyTransport(timeout time.Duration) *restyTransport {
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	// Retries belong to the Requester; resty must not retry on its own.
	c.SetRetryCount(0)
	return &restyTransport{client: c}
}

func (t *restyTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	r := t.client.R().
		SetContext(ctx).
		SetHeaders(req.Headers)
	if len(req.Body) > 0 {
		r.SetBody(req.Body)
		r.SetHeader("Content-Type", "application/json")
	}

	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return nil, err
	}
	return &Response{
		Status: resp.StatusCode(),
		Body:   resp.Bytes(),
	}, nil
}

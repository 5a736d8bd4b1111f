package client

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedTransport returns the queued outcomes in order, then repeats the
// last one. It counts attempts.
type scriptedTransport struct {
	outcomes []outcome
	calls    int
}

type outcome struct {
	resp *Response
	err  error
}

func (t *scriptedTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	i := t.calls
	if i >= len(t.outcomes) {
		i = len(t.outcomes) - 1
	}
	t.calls++
	o := t.outcomes[i]
	return o.resp, o.err
}

func ok(body string) outcome    { return outcome{resp: &Response{Status: 200, Body: []byte(body)}} }
func status(code int) outcome   { return outcome{resp: &Response{Status: code, Body: []byte(`{"error":"upstream"}`)}} }
func netErr(msg string) outcome { return outcome{err: errors.New(msg)} }

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestExecuteSucceedsFirstAttempt(t *testing.T) {
	tr := &scriptedTransport{outcomes: []outcome{ok(`{}`)}}
	r := NewRequester(tr, 3, time.Millisecond, testLogger())

	resp, err := r.Execute(context.Background(), &Request{Method: "GET", URL: "http://cms/api/v1/pages"})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, 1, tr.calls)
}

func TestExecuteRetriesTransientFailures(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []outcome
	}{
		{"network errors", []outcome{netErr("dial refused"), netErr("dial refused"), ok(`{}`)}},
		{"5xx responses", []outcome{status(503), status(502), ok(`{}`)}},
		{"mixed", []outcome{netErr("timeout"), status(500), ok(`{}`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &scriptedTransport{outcomes: tt.outcomes}
			r := NewRequester(tr, 3, time.Millisecond, testLogger())

			resp, err := r.Execute(context.Background(), &Request{Method: "GET", URL: "http://cms/x"})
			require.NoError(t, err)
			assert.Equal(t, 200, resp.Status)
			assert.Equal(t, 3, tr.calls)
		})
	}
}

func TestExecuteBackoffDoubles(t *testing.T) {
	tr := &scriptedTransport{outcomes: []outcome{status(500), status(500), ok(`{}`)}}
	base := 20 * time.Millisecond
	r := NewRequester(tr, 3, base, testLogger())

	start := time.Now()
	_, err := r.Execute(context.Background(), &Request{Method: "GET", URL: "http://cms/x"})
	require.NoError(t, err)

	// base before attempt 2, 2*base before attempt 3
	assert.GreaterOrEqual(t, time.Since(start), 3*base)
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	tr := &scriptedTransport{outcomes: []outcome{status(503)}}
	r := NewRequester(tr, 3, time.Millisecond, testLogger())

	_, err := r.Execute(context.Background(), &Request{Method: "GET", URL: "http://cms/x"})
	require.Error(t, err)
	assert.Equal(t, 3, tr.calls)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 503, apiErr.Status)
	assert.Equal(t, "upstream", apiErr.Message)
}

func TestExecute4xxIsTerminal(t *testing.T) {
	for _, code := range []int{400, 404, 409, 422} {
		tr := &scriptedTransport{outcomes: []outcome{status(code)}}
		r := NewRequester(tr, 5, time.Millisecond, testLogger())

		_, err := r.Execute(context.Background(), &Request{Method: "GET", URL: "http://cms/x"})
		require.Error(t, err)
		assert.Equal(t, 1, tr.calls, "status %d must not be retried", code)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, code, apiErr.Status)
	}
}

func TestExecuteCancelledDuringBackoff(t *testing.T) {
	tr := &scriptedTransport{outcomes: []outcome{status(500)}}
	r := NewRequester(tr, 3, time.Hour, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := r.Execute(ctx, &Request{Method: "GET", URL: "http://cms/x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, tr.calls)
}

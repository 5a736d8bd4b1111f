package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// Requester wraps a Transport with bounded retry and exponential backoff.
// A 4xx response is terminal (the request itself is wrong; retrying cannot
// succeed). Network errors, timeouts and 5xx responses are retried up to
// maxAttempts total attempts; the most recent error is surfaced after the
// final attempt. Stateless across calls.
type Requester struct {
	transport   Transport
	maxAttempts int
	baseDelay   time.Duration
	log         *logrus.Logger
}

func NewRequester(transport Transport, maxAttempts int, baseDelay time.Duration, log *logrus.Logger) *Requester {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Requester{
		transport:   transport,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		log:         log,
	}
}

// Execute runs the request, retrying transient failures. The backoff before
// attempt n (n >= 2) is baseDelay * 2^(n-2); the sleep aborts early when ctx
// is cancelled.
func (r *Requester) Execute(ctx context.Context, req *Request) (*Response, error) {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if attempt > 1 {
			delay := r.baseDelay << (attempt - 2)
			r.log.WithFields(logrus.Fields{
				"url":     req.URL,
				"attempt": attempt,
				"delay":   delay.String(),
			}).Debug("retrying request")
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		resp, err := r.transport.Do(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.Status >= 200 && resp.Status < 400:
			return resp, nil
		case resp.Status >= 400 && resp.Status < 500:
			// Terminal: a client-side error cannot be fixed by retrying.
			return nil, &APIError{Status: resp.Status, Message: envelopeError(resp.Body)}
		default:
			lastErr = &APIError{Status: resp.Status, Message: envelopeError(resp.Body)}
		}
	}

	return nil, lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// envelopeError extracts the error message from a response envelope body,
// tolerating non-envelope bodies.
func envelopeError(body []byte) string {
	var env struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if env.Error != "" {
		return env.Error
	}
	return env.Message
}

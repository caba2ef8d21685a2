package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/robocof/robocof/internal/event"
	"github.com/robocof/robocof/internal/logging"
	"github.com/robocof/robocof/internal/telemetry"
)

// Payload is the body POSTed to a callback URL once a deferred run has
// been decided.
type Payload struct {
	Decision string `json:"decision"`
	RunID    int    `json:"run_id"`
}

// Notifier delivers Payloads with retries.
type Notifier struct {
	client         *http.Client
	maxAttempts    uint
	initialBackoff time.Duration
	logger         *logging.Logger
	bus            *event.Bus
	instruments    *telemetry.Instruments
}

// StatusError is returned for a non-2xx callback response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("callback returned status %d", e.StatusCode)
}

// Deliver POSTs p to url. Network errors and 5xx/429 responses are retried
// with exponential backoff; other 4xx responses are final. It returns the
// number of attempts made.
func (n *Notifier) Deliver(ctx context.Context, url string, p Payload) (int, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return 0, err
	}

	bo := backoff.NewExponentialBackOff()
	if n.initialBackoff > 0 {
		bo.InitialInterval = n.initialBackoff
	}
	bo.MaxInterval = 10 * bo.InitialInterval

	attempts := 0
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		return struct{}{}, n.post(ctx, url, body)
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(n.maxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			n.logger.Debug("callback attempt failed, retrying", "url", url, "error", err, "wait", wait)
		}),
	)

	ok := err == nil
	n.instruments.RecordCallback(ctx, ok)
	errMsg := ""
	if ok {
		n.logger.Info("callback delivered", "url", url, "run_id", p.RunID, "decision", p.Decision, "attempts", attempts)
	} else {
		errMsg = err.Error()
		n.logger.Error("callback delivery failed", "url", url, "run_id", p.RunID, "attempts", attempts, "error", err)
	}
	n.bus.Publish(event.NewCallbackDeliveredEvent(p.RunID, url, p.Decision, attempts, errMsg))
	return attempts, err
}

func (n *Notifier) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			return backoff.RetryAfter(secs)
		}
		return &StatusError{StatusCode: resp.StatusCode}
	case resp.StatusCode >= 500:
		return &StatusError{StatusCode: resp.StatusCode}
	default:
		return backoff.Permanent(&StatusError{StatusCode: resp.StatusCode})
	}
}

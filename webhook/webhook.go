// Package webhook notifies callers when a batch job finishes.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// Event types.
const (
	BatchCompleted = "batch.completed"
	BatchFailed    = "batch.failed"
)

// Headers set on signed deliveries. The signature is
// "sha256=<hex HMAC of timestamp + "." + body>".
const (
	SignatureHeader = "X-Galleryzip-Signature"
	TimestampHeader = "X-Galleryzip-Timestamp"
)

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	JobID     string `json:"job_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// NewEvent stamps an event with the current time.
func NewEvent(typ, jobID string, data any) *Event {
	return &Event{Type: typ, JobID: jobID, Timestamp: time.Now().Unix(), Data: data}
}

// Sign returns the signature header value for a delivery made at ts.
func Sign(secret string, ts int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether sig is a valid signature of body sent at ts.
func Verify(secret string, ts int64, body []byte, sig string) bool {
	return hmac.Equal([]byte(Sign(secret, ts, body)), []byte(sig))
}

// errPermanent marks responses that retrying cannot fix.
var errPermanent = errors.New("permanent delivery failure")

// Notifier delivers events with retries.
type Notifier struct {
	client *http.Client

	// delays are the waits before each attempt.
	delays []time.Duration
}

// NewNotifier returns a Notifier with a 10s per-attempt timeout and four
// attempts spread over roughly half a minute.
func NewNotifier() *Notifier {
	return &Notifier{
		client: &http.Client{Timeout: 10 * time.Second},
		delays: []time.Duration{0, time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// Deliver sends one event synchronously.
func (n *Notifier) Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", errors.Join(errPermanent, err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Galleryzip-Webhook/1.0")
	if secret != "" {
		ts := time.Now().Unix()
		req.Header.Set(TimestampHeader, strconv.FormatInt(ts, 10))
		req.Header.Set(SignatureHeader, Sign(secret, ts, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	switch {
	case resp.StatusCode < 400:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	default:
		return fmt.Errorf("webhook: endpoint returned status %d: %w", resp.StatusCode, errPermanent)
	}
}

// Notify sends event in the background, retrying transient failures until
// ctx is done. The returned channel is closed when Notify stops.
func (n *Notifier) Notify(ctx context.Context, url, secret string, event *Event) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		log := slog.With("url", url, "event", event.Type, "job_id", event.JobID)

		for attempt, delay := range n.delays {
			if delay > 0 {
				t := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					t.Stop()
					log.Warn("webhook delivery abandoned", "error", ctx.Err())
					return
				case <-t.C:
				}
			}

			err := n.Deliver(ctx, url, secret, event)
			if err == nil {
				log.Info("webhook delivered", "attempt", attempt+1)
				return
			}
			log.Warn("webhook delivery failed", "attempt", attempt+1, "error", err)
			if errors.Is(err, errPermanent) {
				return
			}
		}
		log.Error("webhook delivery exhausted all retries")
	}()
	return done
}

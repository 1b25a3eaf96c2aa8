package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/yitumuglobal/site-api/internal/emailutil"
	"github.com/yitumuglobal/site-api/internal/ioutil"
	"github.com/yitumuglobal/site-api/internal/log"
	"golang.org/x/sync/semaphore"
)

const maxErrorBody = 1024

// Notifier posts submissions to a webhook in the background. Deliveries are
// best effort: failures are logged and never retried.
type Notifier struct {
	url     string
	client  *http.Client
	timeout time.Duration
	sem     *semaphore.Weighted

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewNotifier creates a notifier that runs at most maxInFlight deliveries at
// once. A nil client uses http.DefaultClient.
func NewNotifier(webhookURL string, timeout time.Duration, maxInFlight int64, client *http.Client) *Notifier {
	if client == nil {
		client = http.DefaultClient
	}
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	return &Notifier{
		url:     webhookURL,
		client:  client,
		timeout: timeout,
		sem:     semaphore.NewWeighted(maxInFlight),
	}
}

// Notify schedules delivery of s and reports whether it was accepted. It
// never blocks: when all slots are busy or the notifier is closed, the
// submission is dropped.
func (n *Notifier) Notify(s Submission) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		log.LogWarnWithFields("contact", "Notifier closed, submission not forwarded", map[string]any{
			"id": s.ID,
		})
		return false
	}
	if !n.sem.TryAcquire(1) {
		log.LogWarnWithFields("contact", "Webhook deliveries saturated, submission dropped", map[string]any{
			"id": s.ID,
		})
		return false
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer n.sem.Release(1)

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		start := time.Now()
		if err := n.deliver(ctx, s); err != nil {
			log.LogErrorWithFields("contact", "Webhook delivery failed", map[string]any{
				"id":    s.ID,
				"error": err.Error(),
			})
			return
		}
		log.LogInfoWithFields("contact", "Submission forwarded", map[string]any{
			"id":          s.ID,
			"emailDomain": emailutil.Domain(s.Email),
			"duration":    time.Since(start).String(),
		})
	}()
	return true
}

func (n *Notifier) deliver(ctx context.Context, s Submission) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := ioutil.ReadLimited(resp.Body, maxErrorBody)
		_ = resp.Body.Close()
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, detail)
	}
	ioutil.DrainAndClose(resp.Body, maxErrorBody)
	return nil
}

// Close stops accepting submissions and waits for in-flight deliveries until
// ctx is done.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for webhook deliveries: %w", ctx.Err())
	}
}

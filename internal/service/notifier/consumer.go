package notifier

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/zucropay/zucropay/internal/logger"
	"github.com/zucropay/zucropay/internal/models"
	"github.com/zucropay/zucropay/internal/repository"
)

const sendTimeout = 5 * time.Second

// SignatureHeader carries the hex HMAC-SHA256 of the request body,
// keyed with the platform secret, so integrators can verify callbacks.
const SignatureHeader = "X-Zucropay-Signature"

type sender struct {
	client    *http.Client
	secretKey string
}

func newSender(secretKey string) *sender {
	return &sender{
		client:    &http.Client{},
		secretKey: secretKey,
	}
}

func (s *sender) Send(ctx context.Context, n models.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(n.Payload))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(s.secretKey, n.Payload))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification rejected with status %d", resp.StatusCode)
	}

	return nil
}

// Sign computes the callback signature for a payload
func Sign(secretKey string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

type Consumer struct {
	countWorkers  int
	notifications repository.NotificationRepo
	sender        *sender
	logger        logger.Logger
}

func (c *Consumer) Consume(ctx context.Context, in <-chan models.Notification) <-chan struct{} {
	idleStopped := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < c.countWorkers; i++ {
		wg.Add(1)
		go func() {
			c.worker(ctx, in)
			wg.Done()
		}()
	}

	go func() {
		defer close(idleStopped)
		wg.Wait()
		c.logger.Debug("Notification consumer stopped")
	}()

	return idleStopped
}

func (c *Consumer) worker(ctx context.Context, in <-chan models.Notification) {
	for {
		select {
		case <-ctx.Done():
			return

		case n, ok := <-in:
			if !ok {
				c.logger.Debug("Notification worker stopped, input channel closed")
				return
			}

			// The outcome is recorded through a detached context: if the
			// run context is canceled while the POST is in flight, the
			// row must still leave the sending state.
			markCtx := context.WithoutCancel(ctx)

			err := c.sender.Send(ctx, n)
			if err != nil {
				c.logger.Warn("Notification delivery failed", "error", err, "notification_id", n.ID, "url", n.URL)
				if err := c.notifications.MarkFailed(markCtx, n.ID); err != nil {
					c.logger.Error("Failed to mark notification failed", "error", err, "notification_id", n.ID)
				}
				continue
			}

			if err := c.notifications.MarkDelivered(markCtx, n.ID, time.Now()); err != nil {
				c.logger.Error("Failed to mark notification delivered", "error", err, "notification_id", n.ID)
			}
		}
	}
}

package notifier

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/zucropay/zucropay/internal/logger"
	"github.com/zucropay/zucropay/internal/models"
	"github.com/zucropay/zucropay/internal/repository"
)

type Producer struct {
	interval      time.Duration
	batchSize     int
	notifications repository.NotificationRepo
	logger        logger.Logger
}

func (p *Producer) Produce(ctx context.Context, out chan<- models.Notification) <-chan struct{} {
	idleStopped := make(chan struct{})
	p.logger.Debug("Starting notification producer", "interval", p.interval, "batch_size", p.batchSize)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Debug("Notification producer stopped by context")
				return

			case <-ticker.C:
				claimed, err := p.notifications.ClaimPending(ctx, p.batchSize)
				if err != nil {
					p.logger.Error("Failed to claim pending notifications", "error", err)
					continue
				}

				for i, n := range claimed {
					select {
					case <-ctx.Done():
						p.logger.Debug("Notification producer stopped while sending")
						p.release(ctx, claimed[i:])
						return
					case out <- n:
					}
				}
			}
		}
	}()

	return idleStopped
}

// release returns claimed rows that never reached a worker to the
// pending state. The run context is already canceled here, so the
// update goes through a detached one.
func (p *Producer) release(ctx context.Context, claimed []models.Notification) {
	if len(claimed) == 0 {
		return
	}

	ids := make([]uuid.UUID, 0, len(claimed))
	for _, n := range claimed {
		ids = append(ids, n.ID)
	}

	if err := p.notifications.Release(context.WithoutCancel(ctx), ids); err != nil {
		p.logger.Error("Failed to release claimed notifications", "error", err, "count", len(ids))
	}
}

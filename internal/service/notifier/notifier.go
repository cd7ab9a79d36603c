package notifier

import (
	"context"
	"time"

	"github.com/zucropay/zucropay/internal/logger"
	"github.com/zucropay/zucropay/internal/models"
	"github.com/zucropay/zucropay/internal/repository"
)

const (
	defaultCountWorkers    = 4
	defaultBatchSize       = 50
	defaultProduceInterval = 5 * time.Second
)

// Notifier delivers queued integrator callbacks: a producer claims
// pending outbox rows on a timer, consumer workers POST the signed
// payloads. A claimed row is invisible to later claims, so a delivery
// outlasting the produce interval is never dispatched twice. Delivery
// is single-shot; a failed POST marks the row failed and the row is
// never picked up again.
type Notifier struct {
	consumer *Consumer
	producer *Producer
}

func New(notifications repository.NotificationRepo, secretKey string, l logger.Logger) *Notifier {
	return &Notifier{
		consumer: &Consumer{
			countWorkers:  defaultCountWorkers,
			notifications: notifications,
			sender:        newSender(secretKey),
			logger:        l,
		},
		producer: &Producer{
			interval:      defaultProduceInterval,
			batchSize:     defaultBatchSize,
			notifications: notifications,
			logger:        l,
		},
	}
}

func (n *Notifier) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	notificationChan := make(chan models.Notification)

	producerStopped := n.producer.Produce(ctx, notificationChan)
	consumerStopped := n.consumer.Consume(ctx, notificationChan)

	go func() {
		defer close(idleStopped)
		defer close(notificationChan)
		<-producerStopped
		<-consumerStopped
		n.consumer.logger.Debug("Notifier stopped")
	}()

	return idleStopped
}

package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zucropay/zucropay/internal/apperrors"
	"github.com/zucropay/zucropay/internal/logger"
	"github.com/zucropay/zucropay/internal/models"
	"github.com/zucropay/zucropay/internal/repository"
)

// Event is the gateway callback payload. Exactly one of Payment or
// Transfer is set depending on the event kind.
type Event struct {
	Event    string         `json:"event"`
	Payment  *EventPayment  `json:"payment,omitempty"`
	Transfer *EventTransfer `json:"transfer,omitempty"`
}

type EventPayment struct {
	ID          string          `json:"id"`
	Value       decimal.Decimal `json:"value"`
	Status      string          `json:"status"`
	PaymentDate string          `json:"paymentDate,omitempty"`
}

type EventTransfer struct {
	ID     string          `json:"id"`
	Value  decimal.Decimal `json:"value"`
	Status string          `json:"status"`
}

type Service struct {
	storage repository.Storage
	logger  logger.Logger
}

func NewService(storage repository.Storage, l logger.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  l,
	}
}

// Handle reconciles one gateway event. The raw payload is persisted
// before anything else so the audit trail survives processing failures,
// and no error ever escapes: the webhook endpoint must acknowledge the
// gateway no matter what happened here.
func (s *Service) Handle(ctx context.Context, raw []byte) {
	var event Event
	eventName := ""
	parseErr := json.Unmarshal(raw, &event)
	if parseErr == nil {
		eventName = event.Event
	}

	audit, err := s.storage.WebhookEvent().CreateEvent(ctx, eventName, raw)
	if err != nil {
		s.logger.Error("Failed to persist webhook event", "error", err, "event", eventName)
		return
	}

	procErr := s.process(ctx, event, parseErr)
	msg := ""
	if procErr != nil {
		msg = procErr.Error()
		s.logger.Error("Webhook reconciliation failed", "error", procErr, "event", eventName, "audit_id", audit.ID)
	}

	if err := s.storage.WebhookEvent().MarkProcessed(ctx, audit.ID, msg); err != nil {
		s.logger.Error("Failed to mark webhook event processed", "error", err, "audit_id", audit.ID)
	}
}

func (s *Service) process(ctx context.Context, event Event, parseErr error) error {
	if parseErr != nil {
		return fmt.Errorf("failed to parse webhook payload: %w", parseErr)
	}

	kind := models.ParseEventKind(event.Event)

	switch kind {
	case models.EventPaymentReceived, models.EventPaymentConfirmed, models.EventPaymentReceivedInCash:
		if event.Payment == nil {
			return errors.New("payment event without payment body")
		}
		return s.reconcilePaymentReceived(ctx, kind, *event.Payment)

	case models.EventPaymentOverdue:
		if event.Payment == nil {
			return errors.New("payment event without payment body")
		}
		_, err := s.storage.Payment().SetStatus(ctx, event.Payment.ID, models.PaymentStatusOverdue, nil)
		if err != nil {
			return fmt.Errorf("failed to mark payment overdue: %w", err)
		}
		return nil

	case models.EventPaymentRefunded:
		if event.Payment == nil {
			return errors.New("payment event without payment body")
		}
		return s.reconcileRefund(ctx, *event.Payment)

	case models.EventTransferFinished:
		if event.Transfer == nil {
			return errors.New("transfer event without transfer body")
		}
		return s.reconcileTransferFinished(ctx, *event.Transfer)

	case models.EventUnknown:
		s.logger.Info("Ignoring unknown webhook event", "event", event.Event)
		return nil

	default:
		return fmt.Errorf("unhandled event kind: %v", kind)
	}
}

// reconcilePaymentReceived settles a confirmed payment. Deposits are
// pre-recorded as pending transactions at creation time, sales only as
// payment rows; the pending-deposit lookup is what tells the two flows
// apart, since both arrive under the same event names.
func (s *Service) reconcilePaymentReceived(ctx context.Context, kind models.EventKind, payment EventPayment) error {
	return s.storage.InTx(ctx, func(store repository.Storage) error {
		deposit, err := store.Transaction().GetPendingDeposit(ctx, payment.ID)

		switch {
		case err == nil:
			return s.completeDeposit(ctx, store, deposit)
		case errors.Is(err, apperrors.ErrTransactionNotFound):
			return s.completeSale(ctx, store, kind, payment)
		default:
			return fmt.Errorf("failed to look up pending deposit: %w", err)
		}
	})
}

func (s *Service) completeDeposit(ctx context.Context, store repository.Storage, deposit models.Transaction) error {
	completed, err := store.Transaction().Complete(ctx, deposit.ID)
	if err != nil {
		return fmt.Errorf("failed to complete deposit transaction: %w", err)
	}

	if _, err := store.User().ApplyBalanceDelta(ctx, completed.UserID, completed.Amount); err != nil {
		return fmt.Errorf("failed to credit deposit: %w", err)
	}

	s.logger.Info("Deposit settled",
		"user_id", completed.UserID, "amount", completed.Amount, "transaction_id", completed.ID)
	return nil
}

func (s *Service) completeSale(ctx context.Context, store repository.Storage, kind models.EventKind, payment EventPayment) error {
	status := models.PaymentStatusReceived
	if kind == models.EventPaymentConfirmed {
		status = models.PaymentStatusConfirmed
	}

	paymentDate := parsePaymentDate(payment.PaymentDate)
	updated, err := store.Payment().SetStatus(ctx, payment.ID, status, paymentDate)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	gatewayID := payment.ID
	_, err = store.Transaction().CreateTransaction(ctx, models.Transaction{
		UserID:           updated.UserID,
		Type:             models.TransactionTypePaymentReceived,
		Amount:           updated.Amount,
		Status:           models.TransactionStatusCompleted,
		GatewayPaymentID: &gatewayID,
	})

	switch {
	case errors.Is(err, apperrors.ErrTransactionAlreadyExists):
		// Re-delivered event, already credited
		s.logger.Info("Duplicate payment event ignored", "gateway_payment_id", payment.ID)
		return nil
	case err != nil:
		return fmt.Errorf("failed to record sale transaction: %w", err)
	}

	if _, err := store.User().ApplyBalanceDelta(ctx, updated.UserID, updated.Amount); err != nil {
		return fmt.Errorf("failed to credit sale: %w", err)
	}

	s.logger.Info("Sale settled",
		"user_id", updated.UserID, "amount", updated.Amount, "gateway_payment_id", payment.ID)
	return nil
}

// reconcileRefund reverses a settled sale. The same conflict guard used
// for sales protects refunds: a re-delivered PAYMENT_REFUNDED event
// finds the refund row already present and debits nothing.
func (s *Service) reconcileRefund(ctx context.Context, payment EventPayment) error {
	return s.storage.InTx(ctx, func(store repository.Storage) error {
		updated, err := store.Payment().SetStatus(ctx, payment.ID, models.PaymentStatusRefunded, nil)
		if err != nil {
			return fmt.Errorf("failed to mark payment refunded: %w", err)
		}

		gatewayID := payment.ID
		_, err = store.Transaction().CreateTransaction(ctx, models.Transaction{
			UserID:           updated.UserID,
			Type:             models.TransactionTypeRefund,
			Amount:           updated.Amount.Neg(),
			Status:           models.TransactionStatusCompleted,
			GatewayPaymentID: &gatewayID,
		})

		switch {
		case errors.Is(err, apperrors.ErrTransactionAlreadyExists):
			s.logger.Info("Duplicate refund event ignored", "gateway_payment_id", payment.ID)
			return nil
		case err != nil:
			return fmt.Errorf("failed to record refund transaction: %w", err)
		}

		if _, err := store.User().ApplyBalanceDelta(ctx, updated.UserID, updated.Amount.Neg()); err != nil {
			return fmt.Errorf("failed to debit refund: %w", err)
		}

		s.logger.Info("Refund settled",
			"user_id", updated.UserID, "amount", updated.Amount.Neg(), "gateway_payment_id", payment.ID)
		return nil
	})
}

// reconcileTransferFinished completes the pending transfer transaction
// and applies its negative amount, keeping the balance equal to the sum
// of completed ledger rows.
func (s *Service) reconcileTransferFinished(ctx context.Context, transfer EventTransfer) error {
	return s.storage.InTx(ctx, func(store repository.Storage) error {
		completed, err := store.Transaction().CompleteTransferByGatewayID(ctx, transfer.ID)

		switch {
		case errors.Is(err, apperrors.ErrTransactionNotFound):
			// Unknown or already finished transfer, nothing to settle
			s.logger.Info("Transfer event matched no pending transaction", "gateway_transfer_id", transfer.ID)
			return nil
		case err != nil:
			return fmt.Errorf("failed to complete transfer transaction: %w", err)
		}

		if _, err := store.User().ApplyBalanceDelta(ctx, completed.UserID, completed.Amount); err != nil {
			return fmt.Errorf("failed to debit transfer: %w", err)
		}

		s.logger.Info("Transfer settled",
			"user_id", completed.UserID, "amount", completed.Amount, "gateway_transfer_id", transfer.ID)
		return nil
	})
}

func parsePaymentDate(value string) *time.Time {
	if value == "" {
		now := time.Now()
		return &now
	}

	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		now := time.Now()
		return &now
	}
	return &parsed
}

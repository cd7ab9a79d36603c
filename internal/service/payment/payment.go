package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zucropay/zucropay/internal/logger"
	"github.com/zucropay/zucropay/internal/models"
	"github.com/zucropay/zucropay/internal/repository"
)

var (
	ErrAmountNotPositive = errors.New("amount must be greater than zero")
	ErrCustomerRequired  = errors.New("customer name and email are required")
)

type Customer struct {
	Name     string
	Email    string
	Document string
	Phone    string
}

type CreateRequest struct {
	Amount            decimal.Decimal
	Customer          Customer
	BillingType       string
	Description       string
	ExternalReference string
	WebhookURL        string
}

type CreateResult struct {
	Payment     models.Payment
	CheckoutURL string
	WebhookURL  string
}

type Service struct {
	storage       repository.Storage
	publicBaseURL string
	logger        logger.Logger
}

func NewService(storage repository.Storage, publicBaseURL string, l logger.Logger) *Service {
	return &Service{
		storage:       storage,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        l,
	}
}

// Create records an integrator-initiated payment. This path never talks
// to the gateway: the payment starts out PENDING with synthesized PIX
// material and settles later through the webhook reconciler. When a
// webhook URL is supplied a PAYMENT_CREATED notification is queued for
// single-shot signed delivery.
func (s *Service) Create(ctx context.Context, key models.APIKey, req CreateRequest) (CreateResult, error) {
	var result CreateResult

	if !req.Amount.IsPositive() {
		return result, ErrAmountNotPositive
	}
	if req.Customer.Name == "" || req.Customer.Email == "" {
		return result, ErrCustomerRequired
	}

	billingType := req.BillingType
	if billingType == "" {
		billingType = models.BillingTypePix
	}

	id := uuid.New()
	pixPayload := synthesizePixPayload(id, req.Amount)
	pixImage := base64.StdEncoding.EncodeToString([]byte(pixPayload))

	payment := models.Payment{
		ID:              id,
		UserID:          key.UserID,
		Amount:          req.Amount,
		Status:          models.PaymentStatusPending,
		BillingType:     billingType,
		Description:     req.Description,
		PixPayload:      &pixPayload,
		PixEncodedImage: &pixImage,
	}
	if req.ExternalReference != "" {
		payment.ExternalReference = &req.ExternalReference
	}

	payment, err := s.storage.Payment().CreatePayment(ctx, payment)
	if err != nil {
		return result, fmt.Errorf("failed to persist payment: %w", err)
	}

	result.Payment = payment
	result.CheckoutURL = s.publicBaseURL + "/checkout/" + payment.ID.String()

	if req.WebhookURL != "" {
		result.WebhookURL = req.WebhookURL
		if err := s.queueCreatedNotification(ctx, payment, req.WebhookURL); err != nil {
			// Fire and forget: the payment is already created, the
			// caller keeps its 201
			s.logger.Error("Failed to queue payment notification", "error", err, "payment_id", payment.ID)
		}
	}

	return result, nil
}

func (s *Service) GetPayment(ctx context.Context, id uuid.UUID) (models.Payment, error) {
	return s.storage.Payment().GetPaymentByID(ctx, id)
}

func (s *Service) queueCreatedNotification(ctx context.Context, payment models.Payment, url string) error {
	body, err := json.Marshal(map[string]any{
		"event": "PAYMENT_CREATED",
		"payment": map[string]any{
			"id":     payment.ID,
			"status": payment.Status,
			"amount": payment.Amount,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification payload: %w", err)
	}

	_, err = s.storage.Notification().CreateNotification(ctx, models.Notification{
		PaymentID: payment.ID,
		URL:       url,
		Event:     "PAYMENT_CREATED",
		Payload:   body,
	})
	if err != nil {
		return fmt.Errorf("failed to queue notification: %w", err)
	}
	return nil
}

// synthesizePixPayload builds a stand-in BR Code string. It is not a
// valid EMV payload; the real one comes from the gateway on checkout
// flows.
func synthesizePixPayload(id uuid.UUID, amount decimal.Decimal) string {
	return fmt.Sprintf("00020126zucropay.com.br/pix/%s540%s5802BR6304", id, amount.StringFixed(2))
}

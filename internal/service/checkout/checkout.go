package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zucropay/zucropay/internal/gateway"
	"github.com/zucropay/zucropay/internal/logger"
	"github.com/zucropay/zucropay/internal/models"
	"github.com/zucropay/zucropay/internal/repository"
)

type gatewayClient interface {
	CreateCustomer(ctx context.Context, apiKey string, req gateway.CreateCustomerRequest) (gateway.Customer, error)
	CreatePayment(ctx context.Context, apiKey string, req gateway.CreatePaymentRequest) (gateway.Payment, error)
	GetPixQRCode(ctx context.Context, apiKey string, paymentID string) (gateway.PixQRCode, error)
}

type Customer struct {
	Name    string
	Email   string
	CpfCnpj string
	Phone   string
}

type CreditCard struct {
	HolderName  string
	Number      string
	ExpiryMonth string
	ExpiryYear  string
	Ccv         string
	HolderCpf   string
	PostalCode  string
}

type PayRequest struct {
	LinkID      uuid.UUID
	Customer    Customer
	BillingType string
	CreditCard  *CreditCard
}

type PixInfo struct {
	EncodedImage string
	Payload      string
}

type PayResult struct {
	Payment models.Payment
	Pix     *PixInfo
}

type Service struct {
	storage        repository.Storage
	gateway        gatewayClient
	platformAPIKey string
	logger         logger.Logger
}

func NewService(storage repository.Storage, gw gatewayClient, platformAPIKey string, l logger.Logger) *Service {
	return &Service{
		storage:        storage,
		gateway:        gw,
		platformAPIKey: platformAPIKey,
		logger:         l,
	}
}

// Pay runs an unauthenticated checkout against a merchant's payment
// link. Card fields go to the gateway verbatim: malformed cards are the
// processor's call, not ours.
func (s *Service) Pay(ctx context.Context, req PayRequest) (PayResult, error) {
	var result PayResult

	link, err := s.storage.PaymentLink().GetActiveLink(ctx, req.LinkID)
	if err != nil {
		return result, err
	}

	merchant, err := s.storage.User().GetUserByID(ctx, link.UserID)
	if err != nil {
		return result, fmt.Errorf("failed to load link owner: %w", err)
	}

	apiKey := s.resolveCredential(merchant)

	customer, err := s.gateway.CreateCustomer(ctx, apiKey, gateway.CreateCustomerRequest{
		Name:    req.Customer.Name,
		Email:   req.Customer.Email,
		CpfCnpj: req.Customer.CpfCnpj,
		Phone:   req.Customer.Phone,
	})
	if err != nil {
		return result, err
	}

	gwReq := gateway.CreatePaymentRequest{
		Customer:    customer.ID,
		BillingType: req.BillingType,
		Value:       link.Amount,
		DueDate:     time.Now().Format("2006-01-02"),
		Description: link.Description,
	}
	if req.BillingType == models.BillingTypeCreditCard && req.CreditCard != nil {
		gwReq.CreditCard = &gateway.CreditCard{
			HolderName:  req.CreditCard.HolderName,
			Number:      req.CreditCard.Number,
			ExpiryMonth: req.CreditCard.ExpiryMonth,
			ExpiryYear:  req.CreditCard.ExpiryYear,
			Ccv:         req.CreditCard.Ccv,
		}
		gwReq.CreditCardHolder = &gateway.CreditCardHolderInfo{
			Name:       req.CreditCard.HolderName,
			Email:      req.Customer.Email,
			CpfCnpj:    req.CreditCard.HolderCpf,
			PostalCode: req.CreditCard.PostalCode,
			Phone:      req.Customer.Phone,
		}
	}

	gwPayment, err := s.gateway.CreatePayment(ctx, apiKey, gwReq)
	if err != nil {
		return result, err
	}

	payment := models.Payment{
		GatewayPaymentID: &gwPayment.ID,
		UserID:           link.UserID,
		Amount:           link.Amount,
		Status:           gwPayment.Status,
		BillingType:      req.BillingType,
		Description:      link.Description,
	}
	if gwPayment.InvoiceURL != "" {
		payment.InvoiceURL = &gwPayment.InvoiceURL
	}
	if gwPayment.BankSlipURL != "" {
		payment.BankSlipURL = &gwPayment.BankSlipURL
	}

	payment, err = s.storage.Payment().CreatePayment(ctx, payment)
	if err != nil {
		return result, fmt.Errorf("failed to persist payment: %w", err)
	}
	result.Payment = payment

	if req.BillingType == models.BillingTypePix {
		qr, err := s.gateway.GetPixQRCode(ctx, apiKey, gwPayment.ID)
		if err != nil {
			// The payment exists on the gateway side; the customer can
			// still pay through the invoice URL, so this is not fatal
			s.logger.Warn("Failed to fetch PIX QR code", "error", err, "gateway_payment_id", gwPayment.ID)
		} else {
			if err := s.storage.Payment().SetPix(ctx, payment.ID, qr.Payload, qr.EncodedImage); err != nil {
				s.logger.Error("Failed to persist PIX material", "error", err, "payment_id", payment.ID)
			}
			result.Pix = &PixInfo{EncodedImage: qr.EncodedImage, Payload: qr.Payload}
		}
	}

	// Incremented even when the PIX fetch failed above
	if err := s.storage.PaymentLink().IncrementPaymentsCount(ctx, link.ID); err != nil {
		s.logger.Error("Failed to increment link counter", "error", err, "link_id", link.ID)
	}

	return result, nil
}

func (s *Service) resolveCredential(merchant models.User) string {
	if merchant.GatewayAPIKey != nil && *merchant.GatewayAPIKey != "" {
		return *merchant.GatewayAPIKey
	}

	// Merchants without their own credential bill through the platform
	// account. Kept from the source system; logged so shared billing is
	// at least visible.
	s.logger.Info("Merchant has no gateway credential, using platform default", "user_id", merchant.ID)
	return s.platformAPIKey
}

package account

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zucropay/zucropay/internal/apperrors"
	"github.com/zucropay/zucropay/internal/gateway"
	"github.com/zucropay/zucropay/internal/logger"
	"github.com/zucropay/zucropay/internal/models"
	"github.com/zucropay/zucropay/internal/repository"
)

type gatewayClient interface {
	CreateCustomer(ctx context.Context, apiKey string, req gateway.CreateCustomerRequest) (gateway.Customer, error)
	CreatePayment(ctx context.Context, apiKey string, req gateway.CreatePaymentRequest) (gateway.Payment, error)
	GetPixQRCode(ctx context.Context, apiKey string, paymentID string) (gateway.PixQRCode, error)
	CreateTransfer(ctx context.Context, apiKey string, req gateway.CreateTransferRequest) (gateway.Transfer, error)
}

type DepositResult struct {
	Transaction models.Transaction
	Pix         *gateway.PixQRCode
	InvoiceURL  string
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

func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	user, err := s.storage.User().GetUserByID(ctx, userID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return user.Balance, nil
}

func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	return s.storage.Transaction().ListByUser(ctx, userID)
}

// CreateDeposit starts a wallet top-up: a gateway PIX payment for the
// merchant plus a pending deposit transaction keyed by the gateway
// payment id. The pending row is the marker the reconciler later uses
// to tell this top-up apart from a customer sale.
func (s *Service) CreateDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (DepositResult, error) {
	var result DepositResult

	if !amount.IsPositive() {
		return result, fmt.Errorf("deposit amount must be positive")
	}

	user, err := s.storage.User().GetUserByID(ctx, userID)
	if err != nil {
		return result, err
	}
	apiKey := s.resolveCredential(user)

	customer, err := s.gateway.CreateCustomer(ctx, apiKey, gateway.CreateCustomerRequest{
		Name:  user.Name,
		Email: user.Email,
	})
	if err != nil {
		return result, err
	}

	gwPayment, err := s.gateway.CreatePayment(ctx, apiKey, gateway.CreatePaymentRequest{
		Customer:    customer.ID,
		BillingType: models.BillingTypePix,
		Value:       amount,
		DueDate:     time.Now().Format("2006-01-02"),
		Description: "Wallet deposit",
	})
	if err != nil {
		return result, err
	}

	tr, err := s.storage.Transaction().CreateTransaction(ctx, models.Transaction{
		UserID:           userID,
		Type:             models.TransactionTypeDeposit,
		Amount:           amount,
		Status:           models.TransactionStatusPending,
		GatewayPaymentID: &gwPayment.ID,
	})
	if err != nil {
		return result, fmt.Errorf("failed to record pending deposit: %w", err)
	}
	result.Transaction = tr
	result.InvoiceURL = gwPayment.InvoiceURL

	qr, err := s.gateway.GetPixQRCode(ctx, apiKey, gwPayment.ID)
	if err != nil {
		s.logger.Warn("Failed to fetch deposit PIX QR code", "error", err, "gateway_payment_id", gwPayment.ID)
	} else {
		result.Pix = &qr
	}

	return result, nil
}

// RequestWithdrawal moves merchant funds out through a gateway
// transfer. The ledger row starts pending with a negative amount; the
// balance is debited only when TRANSFER_FINISHED arrives.
func (s *Service) RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, pixKey string, pixKeyType string) (models.Transaction, error) {
	var tr models.Transaction

	if !amount.IsPositive() {
		return tr, fmt.Errorf("withdrawal amount must be positive")
	}

	user, err := s.storage.User().GetUserByID(ctx, userID)
	if err != nil {
		return tr, err
	}
	if user.Balance.LessThan(amount) {
		return tr, apperrors.ErrBalanceInsufficient
	}

	transfer, err := s.gateway.CreateTransfer(ctx, s.resolveCredential(user), gateway.CreateTransferRequest{
		Value:      amount,
		PixKey:     pixKey,
		PixKeyType: pixKeyType,
	})
	if err != nil {
		return tr, err
	}

	tr, err = s.storage.Transaction().CreateTransaction(ctx, models.Transaction{
		UserID:            userID,
		Type:              models.TransactionTypeTransfer,
		Amount:            amount.Neg(),
		Status:            models.TransactionStatusPending,
		GatewayTransferID: &transfer.ID,
	})
	if err != nil {
		return tr, fmt.Errorf("failed to record pending transfer: %w", err)
	}

	return tr, nil
}

func (s *Service) CreatePaymentLink(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description string) (models.PaymentLink, error) {
	if !amount.IsPositive() {
		return models.PaymentLink{}, fmt.Errorf("link amount must be positive")
	}

	return s.storage.PaymentLink().CreatePaymentLink(ctx, repository.CreatePaymentLinkParams{
		UserID:      userID,
		Amount:      amount,
		Description: description,
	})
}

func (s *Service) ListPaymentLinks(ctx context.Context, userID uuid.UUID) ([]models.PaymentLink, error) {
	return s.storage.PaymentLink().ListByUser(ctx, userID)
}

func (s *Service) resolveCredential(user models.User) string {
	if user.GatewayAPIKey != nil && *user.GatewayAPIKey != "" {
		return *user.GatewayAPIKey
	}
	return s.platformAPIKey
}

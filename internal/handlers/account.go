package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zucropay/zucropay/internal/apperrors"
	"github.com/zucropay/zucropay/internal/gateway"
	"github.com/zucropay/zucropay/internal/handlers/render"
	"github.com/zucropay/zucropay/internal/handlers/userctx"
	"github.com/zucropay/zucropay/internal/logger"
	"github.com/zucropay/zucropay/internal/models"
	"github.com/zucropay/zucropay/internal/service/account"
)

type accountService interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error)
	CreateDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (account.DepositResult, error)
	RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, pixKey string, pixKeyType string) (models.Transaction, error)
	CreatePaymentLink(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description string) (models.PaymentLink, error)
	ListPaymentLinks(ctx context.Context, userID uuid.UUID) ([]models.PaymentLink, error)
}

func handleBalance(service accountService, l logger.Logger) http.Handler {
	type response struct {
		Balance decimal.Decimal `json:"balance"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		balance, err := service.GetBalance(r.Context(), user.ID)

		switch err {
		case nil:
			render.JSON(w, response{Balance: balance})
		default:
			l.Error("Failed to get balance", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleListTransactions(service accountService, l logger.Logger) http.Handler {
	type transaction struct {
		ID        uuid.UUID       `json:"id"`
		Type      string          `json:"type"`
		Amount    decimal.Decimal `json:"amount"`
		Status    string          `json:"status"`
		CreatedAt time.Time       `json:"created_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		trs, err := service.ListTransactions(r.Context(), user.ID)

		switch err {
		case nil:
			out := make([]transaction, 0, len(trs))
			for _, tr := range trs {
				out = append(out, transaction{
					ID:        tr.ID,
					Type:      tr.Type,
					Amount:    tr.Amount,
					Status:    tr.Status,
					CreatedAt: tr.CreatedAt,
				})
			}
			render.JSON(w, out)
		default:
			l.Error("Failed to list transactions", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleCreateDeposit(service accountService, l logger.Logger) http.Handler {
	type request struct {
		Amount decimal.Decimal `json:"amount" validate:"required"`
	}

	type pixInfo struct {
		EncodedImage string `json:"encodedImage"`
		Payload      string `json:"payload"`
	}

	type response struct {
		TransactionID uuid.UUID `json:"transaction_id"`
		Status        string    `json:"status"`
		InvoiceURL    string    `json:"invoice_url,omitempty"`
		Pix           *pixInfo  `json:"pix"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := service.CreateDeposit(r.Context(), user.ID, req.Amount)

		var gwErr *gateway.Error
		switch {
		case err == nil:
			res := response{
				TransactionID: result.Transaction.ID,
				Status:        result.Transaction.Status,
				InvoiceURL:    result.InvoiceURL,
			}
			if result.Pix != nil {
				res.Pix = &pixInfo{EncodedImage: result.Pix.EncodedImage, Payload: result.Pix.Payload}
			}
			render.JSONWithStatus(w, res, http.StatusCreated)
		case errors.As(err, &gwErr):
			render.ServiceError(w, gwErr.Detail, http.StatusBadGateway)
		default:
			l.Error("Failed to create deposit", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleRequestWithdrawal(service accountService, l logger.Logger) http.Handler {
	type request struct {
		Amount     decimal.Decimal `json:"amount" validate:"required"`
		PixKey     string          `json:"pix_key" validate:"required"`
		PixKeyType string          `json:"pix_key_type" validate:"required,oneof=CPF CNPJ EMAIL PHONE EVP"`
	}

	type response struct {
		TransactionID uuid.UUID       `json:"transaction_id"`
		Amount        decimal.Decimal `json:"amount"`
		Status        string          `json:"status"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		tr, err := service.RequestWithdrawal(r.Context(), user.ID, req.Amount, req.PixKey, req.PixKeyType)

		var gwErr *gateway.Error
		switch {
		case err == nil:
			render.JSONWithStatus(w, response{
				TransactionID: tr.ID,
				Amount:        tr.Amount,
				Status:        tr.Status,
			}, http.StatusCreated)
		case errors.Is(err, apperrors.ErrBalanceInsufficient):
			render.ServiceError(w, "Insufficient balance", http.StatusPaymentRequired)
		case errors.As(err, &gwErr):
			render.ServiceError(w, gwErr.Detail, http.StatusBadGateway)
		default:
			l.Error("Failed to request withdrawal", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleCreatePaymentLink(service accountService, l logger.Logger) http.Handler {
	type request struct {
		Amount      decimal.Decimal `json:"amount" validate:"required"`
		Description string          `json:"description"`
	}

	type response struct {
		ID            uuid.UUID       `json:"id"`
		Amount        decimal.Decimal `json:"amount"`
		Description   string          `json:"description"`
		Active        bool            `json:"active"`
		PaymentsCount int             `json:"payments_count"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		link, err := service.CreatePaymentLink(r.Context(), user.ID, req.Amount, req.Description)

		switch err {
		case nil:
			render.JSONWithStatus(w, response{
				ID:            link.ID,
				Amount:        link.Amount,
				Description:   link.Description,
				Active:        link.Active,
				PaymentsCount: link.PaymentsCount,
			}, http.StatusCreated)
		default:
			l.Error("Failed to create payment link", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleListPaymentLinks(service accountService, l logger.Logger) http.Handler {
	type link struct {
		ID            uuid.UUID       `json:"id"`
		Amount        decimal.Decimal `json:"amount"`
		Description   string          `json:"description"`
		Active        bool            `json:"active"`
		PaymentsCount int             `json:"payments_count"`
		CreatedAt     time.Time       `json:"created_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		links, err := service.ListPaymentLinks(r.Context(), user.ID)

		switch err {
		case nil:
			out := make([]link, 0, len(links))
			for _, pl := range links {
				out = append(out, link{
					ID:            pl.ID,
					Amount:        pl.Amount,
					Description:   pl.Description,
					Active:        pl.Active,
					PaymentsCount: pl.PaymentsCount,
					CreatedAt:     pl.CreatedAt,
				})
			}
			render.JSON(w, out)
		default:
			l.Error("Failed to list payment links", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

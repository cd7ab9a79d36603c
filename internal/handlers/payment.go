package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zucropay/zucropay/internal/apperrors"
	"github.com/zucropay/zucropay/internal/handlers/keyctx"
	"github.com/zucropay/zucropay/internal/handlers/render"
	"github.com/zucropay/zucropay/internal/logger"
	"github.com/zucropay/zucropay/internal/models"
	"github.com/zucropay/zucropay/internal/service/payment"
)

type paymentService interface {
	Create(ctx context.Context, key models.APIKey, req payment.CreateRequest) (payment.CreateResult, error)
	GetPayment(ctx context.Context, id uuid.UUID) (models.Payment, error)
}

func handleCreatePayment(service paymentService, l logger.Logger) http.Handler {
	type customer struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Document string `json:"document"`
		Phone    string `json:"phone"`
	}

	type request struct {
		Amount            decimal.Decimal `json:"amount"`
		Customer          customer        `json:"customer"`
		BillingType       string          `json:"billing_type"`
		Description       string          `json:"description"`
		ExternalReference string          `json:"external_reference"`
		WebhookURL        string          `json:"webhook_url"`
	}

	type pixInfo struct {
		Payload      string `json:"payload"`
		EncodedImage string `json:"encoded_image"`
	}

	type paymentInfo struct {
		ID          uuid.UUID       `json:"id"`
		Status      string          `json:"status"`
		Amount      decimal.Decimal `json:"amount"`
		BillingType string          `json:"billing_type"`
	}

	type response struct {
		Success     bool        `json:"success"`
		Payment     paymentInfo `json:"payment"`
		Pix         *pixInfo    `json:"pix"`
		CheckoutURL string      `json:"checkout_url"`
		WebhookURL  string      `json:"webhook_url,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := keyctx.FromContext(r.Context())
		if !ok {
			render.APIError(w, http.StatusInternalServerError, "Erro interno", "")
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := service.Create(r.Context(), key, payment.CreateRequest{
			Amount: req.Amount,
			Customer: payment.Customer{
				Name:     req.Customer.Name,
				Email:    req.Customer.Email,
				Document: req.Customer.Document,
				Phone:    req.Customer.Phone,
			},
			BillingType:       req.BillingType,
			Description:       req.Description,
			ExternalReference: req.ExternalReference,
			WebhookURL:        req.WebhookURL,
		})

		switch {
		case err == nil:
			res := response{
				Success: true,
				Payment: paymentInfo{
					ID:          result.Payment.ID,
					Status:      result.Payment.Status,
					Amount:      result.Payment.Amount,
					BillingType: result.Payment.BillingType,
				},
				CheckoutURL: result.CheckoutURL,
				WebhookURL:  result.WebhookURL,
			}
			if result.Payment.PixPayload != nil && result.Payment.PixEncodedImage != nil {
				res.Pix = &pixInfo{
					Payload:      *result.Payment.PixPayload,
					EncodedImage: *result.Payment.PixEncodedImage,
				}
			}
			render.JSONWithStatus(w, res, http.StatusCreated)

		case errors.Is(err, payment.ErrAmountNotPositive):
			render.APIError(w, http.StatusBadRequest, "Valor deve ser maior que zero", "")

		case errors.Is(err, payment.ErrCustomerRequired):
			render.APIError(w, http.StatusBadRequest, "Nome e email do cliente são obrigatórios", "")

		default:
			l.Error("Direct payment create failed", "error", err)
			// Source-faithful: the raw error is echoed to the caller
			render.APIError(w, http.StatusInternalServerError, "Erro ao criar pagamento", err.Error())
		}
	})
}

func handleGetPayment(service paymentService, l logger.Logger) http.Handler {
	type response struct {
		ID          uuid.UUID       `json:"id"`
		Status      string          `json:"status"`
		Amount      decimal.Decimal `json:"amount"`
		BillingType string          `json:"billing_type"`
		Description string          `json:"description,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.APIError(w, http.StatusBadRequest, "ID de pagamento inválido", "")
			return
		}

		p, err := service.GetPayment(r.Context(), id)

		switch {
		case err == nil:
			render.JSON(w, response{
				ID:          p.ID,
				Status:      p.Status,
				Amount:      p.Amount,
				BillingType: p.BillingType,
				Description: p.Description,
			})
		case errors.Is(err, apperrors.ErrPaymentNotFound):
			render.APIError(w, http.StatusNotFound, "Pagamento não encontrado", "")
		default:
			l.Error("Failed to get payment", "error", err, "payment_id", id)
			render.APIError(w, http.StatusInternalServerError, "Erro interno", "")
		}
	})
}

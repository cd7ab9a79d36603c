package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/zucropay/zucropay/internal/apperrors"
	"github.com/zucropay/zucropay/internal/gateway"
	"github.com/zucropay/zucropay/internal/handlers/render"
	"github.com/zucropay/zucropay/internal/logger"
	"github.com/zucropay/zucropay/internal/service/checkout"
)

type checkoutService interface {
	Pay(ctx context.Context, req checkout.PayRequest) (checkout.PayResult, error)
}

func handleCheckout(service checkoutService, l logger.Logger) http.Handler {
	type customer struct {
		Name    string `json:"name" validate:"required"`
		Email   string `json:"email" validate:"required,email"`
		CpfCnpj string `json:"cpfCnpj"`
		Phone   string `json:"phone"`
	}

	type creditCard struct {
		HolderName  string `json:"holderName"`
		Number      string `json:"number"`
		ExpiryMonth string `json:"expiryMonth"`
		ExpiryYear  string `json:"expiryYear"`
		Ccv         string `json:"ccv"`
		HolderCpf   string `json:"holderCpf"`
		PostalCode  string `json:"postalCode"`
	}

	type request struct {
		LinkID      uuid.UUID   `json:"linkId" validate:"required"`
		Customer    customer    `json:"customer" validate:"required"`
		BillingType string      `json:"billingType" validate:"required,oneof=PIX CREDIT_CARD BOLETO"`
		CreditCard  *creditCard `json:"creditCard"`
	}

	type paymentInfo struct {
		ID          uuid.UUID `json:"id"`
		Status      string    `json:"status"`
		InvoiceURL  *string   `json:"invoiceUrl"`
		BankSlipURL *string   `json:"bankSlipUrl"`
	}

	type pixInfo struct {
		EncodedImage string `json:"encodedImage"`
		Payload      string `json:"payload"`
	}

	type response struct {
		Success bool         `json:"success"`
		Message string       `json:"message,omitempty"`
		Payment *paymentInfo `json:"payment,omitempty"`
		Pix     *pixInfo     `json:"pix"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		payReq := checkout.PayRequest{
			LinkID: req.LinkID,
			Customer: checkout.Customer{
				Name:    req.Customer.Name,
				Email:   req.Customer.Email,
				CpfCnpj: req.Customer.CpfCnpj,
				Phone:   req.Customer.Phone,
			},
			BillingType: req.BillingType,
		}
		if req.CreditCard != nil {
			payReq.CreditCard = &checkout.CreditCard{
				HolderName:  req.CreditCard.HolderName,
				Number:      req.CreditCard.Number,
				ExpiryMonth: req.CreditCard.ExpiryMonth,
				ExpiryYear:  req.CreditCard.ExpiryYear,
				Ccv:         req.CreditCard.Ccv,
				HolderCpf:   req.CreditCard.HolderCpf,
				PostalCode:  req.CreditCard.PostalCode,
			}
		}

		result, err := service.Pay(r.Context(), payReq)

		var gwErr *gateway.Error
		switch {
		case err == nil:
			res := response{
				Success: true,
				Payment: &paymentInfo{
					ID:          result.Payment.ID,
					Status:      result.Payment.Status,
					InvoiceURL:  result.Payment.InvoiceURL,
					BankSlipURL: result.Payment.BankSlipURL,
				},
			}
			if result.Pix != nil {
				res.Pix = &pixInfo{
					EncodedImage: result.Pix.EncodedImage,
					Payload:      result.Pix.Payload,
				}
			}
			render.JSON(w, res)

		case errors.Is(err, apperrors.ErrPaymentLinkNotFound):
			render.JSONWithStatus(w, response{
				Success: false,
				Message: "Link de pagamento não encontrado",
			}, http.StatusNotFound)

		case errors.As(err, &gwErr):
			render.JSONWithStatus(w, response{
				Success: false,
				Message: gwErr.Detail,
			}, http.StatusInternalServerError)

		default:
			l.Error("Checkout failed", "error", err, "link_id", req.LinkID)
			render.JSONWithStatus(w, response{
				Success: false,
				Message: "Erro interno ao processar pagamento",
			}, http.StatusInternalServerError)
		}
	})
}

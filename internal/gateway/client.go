package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zucropay/zucropay/internal/logger"
)

const requestTimeout = 5 * time.Second

// Error is a processor-side rejection. StatusCode is the processor's
// HTTP status; Detail is the first error description from its body.
type Error struct {
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway rejected request: status=%d detail=%s", e.StatusCode, e.Detail)
}

type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	CpfCnpj string `json:"cpfCnpj,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

type CreateCustomerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	CpfCnpj string `json:"cpfCnpj,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

type CreditCard struct {
	HolderName  string `json:"holderName"`
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiryMonth"`
	ExpiryYear  string `json:"expiryYear"`
	Ccv         string `json:"ccv"`
}

type CreditCardHolderInfo struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	CpfCnpj    string `json:"cpfCnpj"`
	PostalCode string `json:"postalCode,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

type CreatePaymentRequest struct {
	Customer          string                `json:"customer"`
	BillingType       string                `json:"billingType"`
	Value             decimal.Decimal       `json:"value"`
	DueDate           string                `json:"dueDate"`
	Description       string                `json:"description,omitempty"`
	ExternalReference string                `json:"externalReference,omitempty"`
	CreditCard        *CreditCard           `json:"creditCard,omitempty"`
	CreditCardHolder  *CreditCardHolderInfo `json:"creditCardHolderInfo,omitempty"`
}

type Payment struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Value       decimal.Decimal `json:"value"`
	BillingType string          `json:"billingType"`
	InvoiceURL  string          `json:"invoiceUrl"`
	BankSlipURL string          `json:"bankSlipUrl"`
}

type PixQRCode struct {
	EncodedImage string `json:"encodedImage"`
	Payload      string `json:"payload"`
}

type CreateTransferRequest struct {
	Value      decimal.Decimal `json:"value"`
	PixKey     string          `json:"pixAddressKey"`
	PixKeyType string          `json:"pixAddressKeyType"`
}

type Transfer struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Value  decimal.Decimal `json:"value"`
}

// Client talks to the external payment processor. The credential is
// passed per call: merchants may carry their own key while the platform
// default covers the rest.
type Client struct {
	BaseURL string

	client *http.Client
	logger logger.Logger
}

func NewClient(baseURL string, l logger.Logger) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		logger:  l,
	}
}

func (c *Client) CreateCustomer(ctx context.Context, apiKey string, req CreateCustomerRequest) (Customer, error) {
	var customer Customer
	err := c.call(ctx, apiKey, http.MethodPost, "/customers", req, &customer)
	return customer, err
}

func (c *Client) CreatePayment(ctx context.Context, apiKey string, req CreatePaymentRequest) (Payment, error) {
	var payment Payment
	err := c.call(ctx, apiKey, http.MethodPost, "/payments", req, &payment)
	return payment, err
}

func (c *Client) GetPixQRCode(ctx context.Context, apiKey string, paymentID string) (PixQRCode, error) {
	var qr PixQRCode
	err := c.call(ctx, apiKey, http.MethodGet, "/payments/"+paymentID+"/pixQrCode", nil, &qr)
	return qr, err
}

func (c *Client) CreateTransfer(ctx context.Context, apiKey string, req CreateTransferRequest) (Transfer, error) {
	var transfer Transfer
	err := c.call(ctx, apiKey, http.MethodPost, "/transfers", req, &transfer)
	return transfer, err
}

// Do forwards an arbitrary request to the processor and returns the raw
// status code and body. Used by the authenticated proxy endpoint.
func (c *Client) Do(ctx context.Context, apiKey string, method string, endpoint string, data any) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.send(ctx, apiKey, method, endpoint, data)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close() // nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	return resp.StatusCode, body, nil
}

func (c *Client) call(ctx context.Context, apiKey string, method string, endpoint string, data any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.send(ctx, apiKey, method, endpoint, data)
	if err != nil {
		return err
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return nil
}

// send issues the request without installing a deadline: the caller
// owns the timeout context until the response body is fully consumed.
func (c *Client) send(ctx context.Context, apiKey string, method string, endpoint string, data any) (*http.Response, error) {
	var body io.Reader
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode gateway request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("access_token", apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send gateway request: %w", err)
	}

	return resp, nil
}

func (c *Client) decodeError(resp *http.Response) error {
	var payload struct {
		Errors []struct {
			Description string `json:"description"`
		} `json:"errors"`
	}

	detail := "unknown error"
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && len(payload.Errors) > 0 {
		detail = payload.Errors[0].Description
	}

	c.logger.Warn("Gateway rejected request", "status_code", resp.StatusCode, "detail", detail)
	return &Error{StatusCode: resp.StatusCode, Detail: detail}
}

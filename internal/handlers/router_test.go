package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/zucropay/zucropay/internal/apperrors"
	"github.com/zucropay/zucropay/internal/gateway"
	"github.com/zucropay/zucropay/internal/logger"
	"github.com/zucropay/zucropay/internal/models"
	"github.com/zucropay/zucropay/internal/service/account"
	"github.com/zucropay/zucropay/internal/service/checkout"
	"github.com/zucropay/zucropay/internal/service/payment"
)

type fakeReconciler struct {
	raw []byte
}

func (f *fakeReconciler) Handle(ctx context.Context, raw []byte) {
	f.raw = raw
}

type fakeCheckout struct {
	err    error
	result checkout.PayResult
}

func (f *fakeCheckout) Pay(ctx context.Context, req checkout.PayRequest) (checkout.PayResult, error) {
	return f.result, f.err
}

type fakePayments struct {
	payment models.Payment
}

func (f *fakePayments) Create(ctx context.Context, key models.APIKey, req payment.CreateRequest) (payment.CreateResult, error) {
	if !req.Amount.IsPositive() {
		return payment.CreateResult{}, payment.ErrAmountNotPositive
	}
	if req.Customer.Name == "" || req.Customer.Email == "" {
		return payment.CreateResult{}, payment.ErrCustomerRequired
	}

	p := f.payment
	p.UserID = key.UserID
	p.Amount = req.Amount
	return payment.CreateResult{
		Payment:     p,
		CheckoutURL: "https://pay.example.com/checkout/" + p.ID.String(),
		WebhookURL:  req.WebhookURL,
	}, nil
}

func (f *fakePayments) GetPayment(ctx context.Context, id uuid.UUID) (models.Payment, error) {
	if id != f.payment.ID {
		return models.Payment{}, apperrors.ErrPaymentNotFound
	}
	return f.payment, nil
}

type fakeAccount struct {
	balance decimal.Decimal
}

func (f *fakeAccount) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return f.balance, nil
}

func (f *fakeAccount) ListTransactions(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	return nil, nil
}

func (f *fakeAccount) CreateDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (account.DepositResult, error) {
	return account.DepositResult{}, nil
}

func (f *fakeAccount) RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, pixKey string, pixKeyType string) (models.Transaction, error) {
	if f.balance.LessThan(amount) {
		return models.Transaction{}, apperrors.ErrBalanceInsufficient
	}
	return models.Transaction{ID: uuid.New(), Amount: amount.Neg(), Status: models.TransactionStatusPending}, nil
}

func (f *fakeAccount) CreatePaymentLink(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description string) (models.PaymentLink, error) {
	return models.PaymentLink{ID: uuid.New(), UserID: userID, Amount: amount, Description: description, Active: true}, nil
}

func (f *fakeAccount) ListPaymentLinks(ctx context.Context, userID uuid.UUID) ([]models.PaymentLink, error) {
	return nil, nil
}

type fakeProxy struct {
	usedAPIKey string
	status     int
	body       []byte
	err        error
}

func (f *fakeProxy) Do(ctx context.Context, apiKey string, method string, endpoint string, data any) (int, []byte, error) {
	f.usedAPIKey = apiKey
	if f.err != nil {
		return 0, nil, f.err
	}
	return f.status, f.body, nil
}

type fakeVerifier struct {
	user models.User
}

func (f *fakeVerifier) UserFromRequest(ctx context.Context, r *http.Request) (models.User, error) {
	if r.Header.Get("Authorization") != "Bearer good-token" {
		return models.User{}, apperrors.ErrUserNotFound
	}
	return f.user, nil
}

type fakeKeys struct {
	key models.APIKey
}

func (f *fakeKeys) Authenticate(ctx context.Context, rawKey string) (models.APIKey, error) {
	if rawKey != "zp_good_secret" {
		return models.APIKey{}, apperrors.ErrAPIKeyInvalid
	}
	return f.key, nil
}

type routerFixture struct {
	handler    http.Handler
	reconciler *fakeReconciler
	checkout   *fakeCheckout
	payments   *fakePayments
	proxy      *fakeProxy
	user       models.User
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	user := models.User{ID: uuid.New(), Name: "merchant", Email: "merchant@example.com"}
	paymentID := uuid.New()
	pix := "00020126pix"

	f := &routerFixture{
		reconciler: &fakeReconciler{},
		checkout:   &fakeCheckout{},
		payments: &fakePayments{payment: models.Payment{
			ID:          paymentID,
			Status:      models.PaymentStatusPending,
			BillingType: models.BillingTypePix,
			Amount:      decimal.NewFromInt(100),
			PixPayload:  &pix,
		}},
		proxy: &fakeProxy{status: http.StatusOK, body: []byte(`{"object":"list"}`)},
		user:  user,
	}

	f.handler = NewRouter(RouterDeps{
		Reconciler:      f.reconciler,
		CheckoutService: f.checkout,
		PaymentService:  f.payments,
		AccountService:  &fakeAccount{balance: decimal.NewFromInt(100)},
		GatewayProxy:    f.proxy,
		TokenVerifier:   &fakeVerifier{user: user},
		APIKeys:         &fakeKeys{key: models.APIKey{ID: uuid.New(), UserID: user.ID}},
		PlatformAPIKey:  "platform-key",
		Logger:          logger.NewNoOpLogger(),
	})

	return f
}

func (f *routerFixture) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouter(t *testing.T) {
	t.Parallel()

	apiKeyHeader := map[string]string{"X-API-Key": "zp_good_secret"}
	bearerHeader := map[string]string{"Authorization": "Bearer good-token"}

	t.Run("create payment requires api key", func(t *testing.T) {
		f := newRouterFixture(t)

		rec := f.do(t, http.MethodPost, "/api/v1/payments/create", `{"amount":10}`, nil)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.JSONEq(t, `{"error":"API key ausente","message":"Envie sua chave no header X-API-Key"}`, rec.Body.String())
	})

	t.Run("create payment rejects bad key", func(t *testing.T) {
		f := newRouterFixture(t)

		rec := f.do(t, http.MethodPost, "/api/v1/payments/create", `{"amount":10}`,
			map[string]string{"X-API-Key": "zp_bad_secret"})

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.JSONEq(t, `{"error":"API key inválida ou inativa","message":"Verifique sua chave no painel ZucroPay"}`, rec.Body.String())
	})

	t.Run("create payment wrong method", func(t *testing.T) {
		f := newRouterFixture(t)

		rec := f.do(t, http.MethodDelete, "/api/v1/payments/create", "", apiKeyHeader)

		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		require.Contains(t, rec.Header().Get("Content-Type"), "application/json", "405 must carry the JSON error shape")
		require.JSONEq(t, `{"error":"Método não permitido"}`, rec.Body.String())
	})

	t.Run("create payment ok", func(t *testing.T) {
		f := newRouterFixture(t)

		rec := f.do(t, http.MethodPost, "/api/v1/payments/create",
			`{"amount":100,"customer":{"name":"João","email":"joao@example.com"}}`, apiKeyHeader)

		require.Equal(t, http.StatusCreated, rec.Code)
		body := rec.Body.String()
		require.Contains(t, body, `"success":true`)
		require.Contains(t, body, f.payments.payment.ID.String())
		require.Contains(t, body, `"checkout_url"`)
		require.Contains(t, body, `"pix"`)
	})

	t.Run("create payment zero amount", func(t *testing.T) {
		f := newRouterFixture(t)

		rec := f.do(t, http.MethodPost, "/api/v1/payments/create",
			`{"amount":0,"customer":{"name":"João","email":"joao@example.com"}}`, apiKeyHeader)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.JSONEq(t, `{"error":"Valor deve ser maior que zero"}`, rec.Body.String())
	})

	t.Run("create payment missing customer", func(t *testing.T) {
		f := newRouterFixture(t)

		rec := f.do(t, http.MethodPost, "/api/v1/payments/create", `{"amount":100}`, apiKeyHeader)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.JSONEq(t, `{"error":"Nome e email do cliente são obrigatórios"}`, rec.Body.String())
	})

	t.Run("get payment", func(t *testing.T) {
		f := newRouterFixture(t)

		rec := f.do(t, http.MethodGet, "/api/v1/payments/"+f.payments.payment.ID.String(), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), f.payments.payment.ID.String())

		rec = f.do(t, http.MethodGet, "/api/v1/payments/"+uuid.NewString(), "", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.JSONEq(t, `{"error":"Pagamento não encontrado"}`, rec.Body.String())

		rec = f.do(t, http.MethodGet, "/api/v1/payments/not-a-uuid", "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("webhook always answers 200", func(t *testing.T) {
		f := newRouterFixture(t)

		for _, body := range []string{
			`{"event":"PAYMENT_RECEIVED","payment":{"id":"pay_1"}}`,
			`{not json`,
			``,
		} {
			rec := f.do(t, http.MethodPost, "/api/v1/webhooks/gateway", body, nil)

			require.Equal(t, http.StatusOK, rec.Code, "body=%q", body)
			require.JSONEq(t, `{"received":true}`, rec.Body.String())
		}
	})

	t.Run("webhook passes raw body to reconciler", func(t *testing.T) {
		f := newRouterFixture(t)
		raw := `{"event":"PAYMENT_RECEIVED","payment":{"id":"pay_1"}}`

		f.do(t, http.MethodPost, "/api/v1/webhooks/gateway", raw, nil)

		require.Equal(t, raw, string(f.reconciler.raw))
	})

	t.Run("checkout ok", func(t *testing.T) {
		f := newRouterFixture(t)
		f.checkout.result = checkout.PayResult{
			Payment: models.Payment{ID: uuid.New(), Status: models.PaymentStatusPending},
			Pix:     &checkout.PixInfo{EncodedImage: "img", Payload: "payload"},
		}

		rec := f.do(t, http.MethodPost, "/api/v1/checkout",
			`{"linkId":"`+uuid.NewString()+`","customer":{"name":"João","email":"joao@example.com"},"billingType":"PIX"}`, nil)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"success":true`)
		require.Contains(t, rec.Body.String(), `"payload":"payload"`)
	})

	t.Run("checkout unknown link", func(t *testing.T) {
		f := newRouterFixture(t)
		f.checkout.err = apperrors.ErrPaymentLinkNotFound

		rec := f.do(t, http.MethodPost, "/api/v1/checkout",
			`{"linkId":"`+uuid.NewString()+`","customer":{"name":"João","email":"joao@example.com"},"billingType":"PIX"}`, nil)

		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Contains(t, rec.Body.String(), "Link de pagamento não encontrado")
	})

	t.Run("checkout gateway rejection", func(t *testing.T) {
		f := newRouterFixture(t)
		f.checkout.err = &gateway.Error{StatusCode: 400, Detail: "O CPF informado é inválido"}

		rec := f.do(t, http.MethodPost, "/api/v1/checkout",
			`{"linkId":"`+uuid.NewString()+`","customer":{"name":"João","email":"joao@example.com"},"billingType":"PIX"}`, nil)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Contains(t, rec.Body.String(), "O CPF informado é inválido")
	})

	t.Run("checkout validates billing type", func(t *testing.T) {
		f := newRouterFixture(t)

		rec := f.do(t, http.MethodPost, "/api/v1/checkout",
			`{"linkId":"`+uuid.NewString()+`","customer":{"name":"João","email":"joao@example.com"},"billingType":"CASH"}`, nil)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("proxy requires bearer", func(t *testing.T) {
		f := newRouterFixture(t)

		rec := f.do(t, http.MethodPost, "/api/v1/gateway/proxy",
			`{"method":"GET","endpoint":"/customers"}`, nil)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("proxy relays gateway response", func(t *testing.T) {
		f := newRouterFixture(t)
		f.proxy.status = http.StatusPaymentRequired
		f.proxy.body = []byte(`{"errors":[{"description":"saldo insuficiente"}]}`)

		rec := f.do(t, http.MethodPost, "/api/v1/gateway/proxy",
			`{"method":"GET","endpoint":"/customers"}`, bearerHeader)

		require.Equal(t, http.StatusPaymentRequired, rec.Code)
		require.JSONEq(t, string(f.proxy.body), rec.Body.String())
		require.Equal(t, "platform-key", f.proxy.usedAPIKey, "merchant without credential uses the platform key")
	})

	t.Run("proxy validates method", func(t *testing.T) {
		f := newRouterFixture(t)

		rec := f.do(t, http.MethodPost, "/api/v1/gateway/proxy",
			`{"method":"PATCH","endpoint":"/customers"}`, bearerHeader)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("balance requires bearer", func(t *testing.T) {
		f := newRouterFixture(t)

		rec := f.do(t, http.MethodGet, "/api/user/balance", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = f.do(t, http.MethodGet, "/api/user/balance", "", bearerHeader)
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"balance":"100"}`, rec.Body.String())
	})

	t.Run("withdrawal exceeding balance", func(t *testing.T) {
		f := newRouterFixture(t)

		rec := f.do(t, http.MethodPost, "/api/user/withdrawals",
			`{"amount":500,"pix_key":"merchant@example.com","pix_key_type":"EMAIL"}`, bearerHeader)

		require.Equal(t, http.StatusPaymentRequired, rec.Code)
		require.Contains(t, rec.Body.String(), "Insufficient balance")
	})

	t.Run("create link", func(t *testing.T) {
		f := newRouterFixture(t)

		rec := f.do(t, http.MethodPost, "/api/user/links",
			`{"amount":49.9,"description":"Assinatura"}`, bearerHeader)

		require.Equal(t, http.StatusCreated, rec.Code)
		require.Contains(t, rec.Body.String(), `"active":true`)
	})
}
